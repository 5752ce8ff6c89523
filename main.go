// The main package for the sitecorpus executable.
package main

import (
	"github.com/JakeFAU/sitecorpus/cmd"
)

func main() {
	cmd.Execute()
}
