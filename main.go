package main

import (
	"log"
	"os"

	"github.com/TFMV/trawl/cmd"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// A panic escaping the walk must not look like a clean run.
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic: %v", r)
			os.Exit(1)
		}
	}()

	if err := cmd.Execute(); err != nil {
		log.Fatalf("Error executing command: %v", err)
	}
}
