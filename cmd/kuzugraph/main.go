package main

import (
	"flag"
	"log"

	kuzugraph "github.com/kasuganosora/kuzugraph"
	"github.com/kasuganosora/kuzugraph/pkg/config"
)

func main() {
	dir := flag.String("dir", ".", "database directory to open")
	configPath := flag.String("config", "", "path to a config.json file (defaults built in)")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db, err := kuzugraph.Open(*dir, cfg)
	if err != nil {
		log.Fatalf("failed to open database at %s: %v", *dir, err)
	}
	defer db.Close()

	log.Printf("opened kuzugraph database at %s", *dir)
}
