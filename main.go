package main

import "github.com/campuscare/grievance-management/cmd"

func main() {
	cmd.Execute()
}
