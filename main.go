// The main package for the film-info-crawler executable.
package main

import (
	"github.com/JakeFAU/film-info-crawler/cmd"
)

func main() {
	cmd.Execute()
}
