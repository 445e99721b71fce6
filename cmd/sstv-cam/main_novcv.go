//go:build !withcv

/*
DESCRIPTION
  Replaces sstv-cam's gocv-backed implementation when built without the
  withcv tag, matching cmd/rv/probe_circleci.go's stub for environments
  (like CI) that lack an OpenCV installation.
*/

package main

import "fmt"

func main() {
	fmt.Println("sstv-cam requires the \"withcv\" build tag (OpenCV via gocv); rebuild with -tags withcv")
}
