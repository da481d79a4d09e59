package main

import (
	"golang.org/x/tools/go/analysis/singlechecker"

	"github.com/Satokaheni/mythic-plus-bot/tools/linters/enumvalidator"
)

func main() {
	singlechecker.Main(enumvalidator.Analyzer)
}
