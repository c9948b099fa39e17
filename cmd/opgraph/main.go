// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command opgraph loads dataflow graphs from HCL files and runs them.
//
// Usage:
//
//	opgraph run graph.hcl 1 2          # prints the outputs
//	opgraph run --in-place graph.hcl 1 2
//	opgraph order graph.hcl            # prints the execution order
//	opgraph config init                # writes ~/.opgraph/opgraph.yaml
//
// When an op fails, the error report starts with the op's definition site
// in the HCL file.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/AleutianAI/opgraph/services/linker/report"
)

func main() {
	report.Install(report.Compose(report.DefaultHandler))

	if err := newCLI().Execute(); err != nil {
		reportFailure(os.Stderr, err)
		os.Exit(1)
	}
}

// reportFailure runs the installed report chain. If a reporter fails, the
// original error is still printed.
func reportFailure(w io.Writer, err error) {
	if rerr := report.Report(w, err); rerr != nil {
		fmt.Fprintln(w, err)
		fmt.Fprintf(w, "(error report incomplete: %v)\n", rerr)
	}
}
