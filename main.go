package main

import "github.com/learnockdevelopment/Mafazaa-Moodle/cmd"

func main() {
	cmd.Execute()
}
