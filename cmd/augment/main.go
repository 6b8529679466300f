package main

import (
	"fmt"
	"os"

	"k8s.io/klog/v2"

	"github.com/lucasnoah/augment/internal/cli"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	defer klog.Flush()
	cli.SetVersion(Version)
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		klog.Flush()
		os.Exit(1)
	}
}
