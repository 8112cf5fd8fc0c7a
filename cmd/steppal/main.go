package main

import "steppal/cmd/steppal/root"

func main() {
	root.Execute()
}
