package main

import (
	"fmt"
	"log"

	"github.com/localnerve/jam-build-collectionsdb/internal/database"
)

// Prints the schema GORM migrates for the collection models, as a reference
// when editing data/initdb.
func main() {
	db, err := database.OpenMemory("inspect_schema")
	if err != nil {
		log.Fatal(err)
	}
	defer database.Close(db)

	var tables []string
	db.Raw("SELECT name FROM sqlite_master WHERE type='table'").Scan(&tables)

	for _, table := range tables {
		fmt.Printf("\n=== Table: %s ===\n", table)
		var schema string
		db.Raw("SELECT sql FROM sqlite_master WHERE name = ?", table).Scan(&schema)
		fmt.Println(schema)

		var indexes []string
		db.Raw("SELECT sql FROM sqlite_master WHERE type='index' AND tbl_name = ? AND sql IS NOT NULL", table).Scan(&indexes)
		for _, idx := range indexes {
			fmt.Println(idx)
		}
	}
}
