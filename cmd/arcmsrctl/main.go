// Command arcmsrctl inspects and manages Areca ArcMSR RAID adapters.
package main

func main() {
	Execute()
}
