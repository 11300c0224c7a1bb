// Command ermctl inspects protected block layouts and runs fault-injection
// campaigns against them.
package main

func main() {
	execute()
}
