// Command nocsim simulates traffic on a mesh or torus network-on-chip.
package main

func main() {
	Execute()
}
