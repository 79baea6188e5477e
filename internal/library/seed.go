package library

// DefaultBooks is the starter catalog used when SEED_CATALOG is enabled.
func DefaultBooks() []NewBook {
	return []NewBook{
		{Title: "Introduction to Algorithms", Author: "Cormen, Leiserson, Rivest, Stein", ISBN: "978-0262033848", Category: "Computer Science", Location: "Shelf A-12", Total: 5},
		{Title: "Operating System Concepts", Author: "Silberschatz, Galvin, Gagne", ISBN: "978-1118063330", Category: "Computer Science", Location: "Shelf A-14", Total: 4},
		{Title: "Database System Concepts", Author: "Silberschatz, Korth, Sudarshan", ISBN: "978-0073523323", Category: "Computer Science", Location: "Shelf A-16", Total: 6},
		{Title: "Computer Networking: A Top-Down Approach", Author: "Kurose, Ross", ISBN: "978-0133594140", Category: "Computer Science", Location: "Shelf B-02", Total: 3},
		{Title: "Engineering Mathematics", Author: "B.S. Grewal", ISBN: "978-8174091550", Category: "Mathematics", Location: "Shelf C-05", Total: 8},
	}
}
