package main

import (
	"log"
	"os"

	"github.com/dmitrijs2005/serialgate/internal/sealcli"
)

func main() {
	if err := sealcli.Run(os.Args[1:], os.Stdout); err != nil {
		log.Fatalf("%v", err)
	}
}
