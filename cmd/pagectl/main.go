// Command pagectl builds, inspects and snapshots pagekit page stores.
package main

func main() {
	execute()
}
