//go:build ignore

// Generates the sample data used by the examples in the README:
//
//	go run testdata/generate.go
package main

import (
	"log"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
	"github.com/parquet-go/parquet-go"
)

type User struct {
	ID     int64   `parquet:"id" json:"id"`
	Name   string  `parquet:"name" json:"name"`
	City   string  `parquet:"city" json:"city"`
	Age    int32   `parquet:"age" json:"age"`
	Active bool    `parquet:"active" json:"active"`
	Score  float64 `parquet:"score" json:"score"`
}

var users = []User{
	{ID: 1, Name: "alice", City: "Oslo", Age: 30, Active: true, Score: 95.5},
	{ID: 2, Name: "bob", City: "Rome", Age: 25, Active: false, Score: 82.3},
	{ID: 3, Name: "charlie", City: "Oslo", Age: 35, Active: true, Score: 88.7},
	{ID: 4, Name: "diana", City: "Lima", Age: 28, Active: true, Score: 91.2},
	{ID: 5, Name: "eve", City: "Rome", Age: 42, Active: false, Score: 76.8},
}

func main() {
	dir := "testdata"
	if err := writeParquet(filepath.Join(dir, "users.parquet")); err != nil {
		log.Fatal(err)
	}
	if err := writeJSONL(filepath.Join(dir, "users.jsonl")); err != nil {
		log.Fatal(err)
	}
	log.Printf("Generated users.parquet and users.jsonl with %d users", len(users))
}

func writeParquet(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := parquet.NewGenericWriter[User](file)
	if _, err := writer.Write(users); err != nil {
		return err
	}
	return writer.Close()
}

func writeJSONL(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	for _, u := range users {
		if err := enc.Encode(u); err != nil {
			return err
		}
	}
	return nil
}
