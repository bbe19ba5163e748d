package main

import "github.com/Brownie44l1/imgclass-api/internal/bootstrap"

func main() {
	bootstrap.Run()
}
