// cmd/kcal-log/main.go
package main

func main() {
	Execute()
}
