// Copyright © 2018 One Concern

package main

import (
	"github.com/oneconcern/pkgr/cmd/pkgr/cmd"
)

func main() {
	cmd.Execute()
}
