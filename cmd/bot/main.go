package main

import "github.com/maks2101281/beauty-battle-new/internal/app"

func main() {
	app.Run()
}
