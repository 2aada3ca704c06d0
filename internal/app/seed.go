package app

import "treeplant/api/internal/store"

var seedNeighborhoods = []string{
	"Adams Point",
	"Chinatown",
	"Dimond District",
	"Downtown",
	"Fruitvale",
	"Glenview",
	"Grand Lake",
	"Jack London Square",
	"Laurel",
	"Maxwell Park",
	"Montclair",
	"Rockridge",
	"San Antonio",
	"Temescal",
	"West Oakland",
}

// Mature size bounds are in feet.
var seedTrees = []store.TreeSeed{
	{CommonName: "Coast Live Oak", ScientificName: "Quercus agrifolia", Inventory: 12, MinHeight: 20, MaxHeight: 70, MinWidth: 20, MaxWidth: 70},
	{CommonName: "Valley Oak", ScientificName: "Quercus lobata", Inventory: 6, MinHeight: 40, MaxHeight: 100, MinWidth: 30, MaxWidth: 80},
	{CommonName: "Western Redbud", ScientificName: "Cercis occidentalis", Inventory: 20, MinHeight: 10, MaxHeight: 20, MinWidth: 10, MaxWidth: 15},
	{CommonName: "California Buckeye", ScientificName: "Aesculus californica", Inventory: 8, MinHeight: 15, MaxHeight: 40, MinWidth: 15, MaxWidth: 40},
	{CommonName: "Chinese Pistache", ScientificName: "Pistacia chinensis", Inventory: 15, MinHeight: 25, MaxHeight: 35, MinWidth: 25, MaxWidth: 35},
	{CommonName: "Ginkgo", ScientificName: "Ginkgo biloba", Inventory: 10, MinHeight: 25, MaxHeight: 50, MinWidth: 15, MaxWidth: 30},
	{CommonName: "Crape Myrtle", ScientificName: "Lagerstroemia indica", Inventory: 18, MinHeight: 10, MaxHeight: 25, MinWidth: 6, MaxWidth: 15},
	{CommonName: "Red Maple", ScientificName: "Acer rubrum", Inventory: 9, MinHeight: 40, MaxHeight: 60, MinWidth: 30, MaxWidth: 40},
	{CommonName: "Brisbane Box", ScientificName: "Lophostemon confertus", Inventory: 7, MinHeight: 30, MaxHeight: 45, MinWidth: 20, MaxWidth: 30},
	{CommonName: "Strawberry Tree", ScientificName: "Arbutus unedo", Inventory: 11, MinHeight: 8, MaxHeight: 20, MinWidth: 8, MaxWidth: 20},
	{CommonName: "Toyon", ScientificName: "Heteromeles arbutifolia", Inventory: 14, MinHeight: 6, MaxHeight: 15, MinWidth: 6, MaxWidth: 15},
	{CommonName: "Swamp Myrtle", ScientificName: "Tristaniopsis laurina", Inventory: 5, MinHeight: 20, MaxHeight: 30, MinWidth: 10, MaxWidth: 20},
}
