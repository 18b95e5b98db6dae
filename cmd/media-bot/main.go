package main

import (
	"github.com/ytget/media-bot/internal/cli"
)

var version = "dev"

func main() {
	cli.Execute(version)
}
