package main

import (
	"log"

	"github.com/bwmarrin/snowflake"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("repair-manager: %v", err)
	}
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
