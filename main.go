package main

import (
	"github.com/tanpawarit/Chative-Support-Router/cmd"
	_ "github.com/tanpawarit/Chative-Support-Router/pkg/logger/autoload"
)

// version is injected via ldflags:
// go build -ldflags "-X main.version=0.1.0"
var version = "dev"

func main() {
	cmd.Execute(version)
}
