// Command hoorii is the conversational smart-home assistant CLI: interactive
// chat, one-shot turns, direct device control, and the MCP stdio server.
package main

import "github.com/JianJiangKCL/HooRii/internal/cli"

func main() {
	cli.Execute()
}
