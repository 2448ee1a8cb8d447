// Command snap captures screenshots from a local video file.
package main

func main() {
	Execute()
}
