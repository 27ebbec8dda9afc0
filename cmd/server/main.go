package main

import "shopsite/internal/app"

func main() {
	app.Run()
}
