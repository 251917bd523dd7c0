package main

import (
	"context"

	"github.com/kbukum/gotemplate/cmd/gotemplate/commands"
)

func main() {
	commands.ExecuteContext(context.Background())
}
