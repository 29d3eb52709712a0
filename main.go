package main

import (
	"github.com/ramonvermeulen/whosthere/internal/cmd"
	"github.com/ramonvermeulen/whosthere/internal/core/version"
)

func main() {
	cmd.Execute(version.Version)
}
