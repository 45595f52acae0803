package main

import "github.com/Skylar-117/DEND-Nanodegree-Udacity/cmd"

func main() {
	cmd.Execute()
}
