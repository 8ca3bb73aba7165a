package main

import (
	"log"

	"imapcopy/cmd"
)

func main() {
	err := cmd.Run()
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
}
