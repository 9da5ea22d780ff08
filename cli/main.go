// klu 是 KLU Agent 的命令行客户端
package main

import "github.com/saivighnesh2190/KLU-RAG-AGENT/cli/cmd"

func main() {
	cmd.Execute()
}
