// Command notes is an interactive terminal client for the notes service.
//
//	notes --server http://localhost:8080
//	> signup ada@example.com
//	> subject Math "Calculus I"
//	> select Math
//	> note Derivatives
package main

func main() {
	Execute()
}
