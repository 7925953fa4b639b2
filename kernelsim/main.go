// Command kernelsim runs batches of user programs on a simulated
// single-CPU machine with demand paging.
package main

import "github.com/sarchlab/kernelsim/kernelsim/cmd"

func main() {
	cmd.Execute()
}
