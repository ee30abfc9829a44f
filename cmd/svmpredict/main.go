// svmpredict serves and runs single-row SVM predictions for the fish, fruit
// and pumpkin-seed demo datasets.
//
// Usage:
//
//	svmpredict serve [--config=config.yaml]
//	svmpredict datasets
//	svmpredict predict --dataset="Fish Dataset" [--set length=10.5 ...]
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
