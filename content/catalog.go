package content

// characterCatalog is the built-in card-face pool. Large enough for the
// maximum grid (8x8 needs 32 distinct names).
var characterCatalog = []string{
	"Luke Skywalker",
	"Leia Organa",
	"Han Solo",
	"Chewbacca",
	"Obi-Wan Kenobi",
	"Yoda",
	"Darth Vader",
	"R2-D2",
	"C-3PO",
	"Lando Calrissian",
	"Padmé Amidala",
	"Anakin Skywalker",
	"Qui-Gon Jinn",
	"Mace Windu",
	"Palpatine",
	"Darth Maul",
	"Count Dooku",
	"General Grievous",
	"Boba Fett",
	"Jango Fett",
	"Jabba Desilijic Tiure",
	"Greedo",
	"Wedge Antilles",
	"Biggs Darklighter",
	"Mon Mothma",
	"Admiral Ackbar",
	"Wilhuff Tarkin",
	"Owen Lars",
	"Beru Whitesun Lars",
	"Shmi Skywalker",
	"Watto",
	"Sebulba",
	"Jar Jar Binks",
	"Bail Prestor Organa",
	"Ki-Adi-Mundi",
	"Kit Fisto",
	"Plo Koon",
	"Luminara Unduli",
	"Barriss Offee",
	"Shaak Ti",
	"Aayla Secura",
	"Zam Wesell",
	"Dexter Jettster",
	"Lama Su",
	"Taun We",
	"Poggle the Lesser",
	"Nute Gunray",
	"Rune Haako",
	"Ric Olié",
	"Quarsh Panaka",
	"Cordé",
	"Dormé",
	"Cliegg Lars",
	"Wat Tambor",
	"San Hill",
	"Tion Medon",
	"Grand Moff Tarkin",
	"Wicket Systri Warrick",
	"Nien Nunb",
	"Arvel Crynyd",
	"Raymus Antilles",
	"Sly Moore",
	"Ayla Ventress",
	"Saesee Tiin",
	"Yarael Poof",
	"Adi Gallia",
	"Eeth Koth",
	"Oppo Rancisis",
	"Even Piell",
	"Depa Billaba",
	"Finis Valorum",
	"Roos Tarpals",
	"Rugor Nass",
	"Gasgano",
	"Ben Quadinaros",
	"Ratts Tyerell",
	"Dud Bolt",
	"Mas Amedda",
	"Gregar Typho",
	"Bossk",
	"IG-88",
	"Dengar",
	"Lobot",
	"Ello Asty",
	"Max Rebo",
}
