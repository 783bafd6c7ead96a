package config

// DefaultCategories are the business categories offered for mass runs.
var DefaultCategories = []string{
	"Convenience Stores",
	"Grocery Stores",
	"Gas Stations",
	"Gift Shops",
	"Pharmacies",
	"Candy Stores",
	"General Stores",
	"Variety Stores",
	"Trading Posts",
	"Tourist Attractions",
	"Sports Complexes",
	"Sports Venues",
	"Museums",
	"Art Galleries",
	"Bookstores",
	"Music Stores",
	"Sports Stores",
	"Electronics Stores",
	"Fashion Stores",
	"Pet Stores",
}

// DefaultLocations are Northern Ontario communities, sorted.
var DefaultLocations = []string{
	"Blind River, ON",
	"Britt, ON",
	"Chapleau, ON",
	"Cochrane, ON",
	"Dryden, ON",
	"Elliot Lake, ON",
	"Espanola, ON",
	"Foleyet, ON",
	"Fort Frances, ON",
	"Gogama, ON",
	"Hearst, ON",
	"Iroquois Falls, ON",
	"Kapuskasing, ON",
	"Kenora, ON",
	"Kirkland Lake, ON",
	"Little Current, ON",
	"Manitouwadge, ON",
	"Marathon, ON",
	"Nipigon, ON",
	"North Bay, ON",
	"Parry Sound, ON",
	"Red Lake, ON",
	"Sault Ste. Marie, ON",
	"Sioux Lookout, ON",
	"Sturgeon Falls, ON",
	"Sudbury, ON",
	"Temiskaming Shores, ON",
	"Thunder Bay, ON",
	"Timmins, ON",
	"Wawa, ON",
}
