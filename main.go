package main

import "github.com/arcmed/arcmed_backend/cmd"

func main() {
	cmd.Execute()
}
