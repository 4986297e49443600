package main

import "hist-temps/internal/tasks"

func main() {
	tasks.Execute()
}
