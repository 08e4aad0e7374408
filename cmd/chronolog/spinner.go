package main

import (
	"fmt"
	"io"
	"strings"
	"time"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// runWithSpinner runs op while animating message on a terminal. Without a
// terminal the message is printed once.
func runWithSpinner(w io.Writer, message string, op func() error) error {
	if !isTTY() {
		fmt.Fprintf(w, "%s...\n", message)
		return op()
	}

	done := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()
		for i := 0; ; i++ {
			fmt.Fprintf(w, "\r%s %s", style(headerStyle, spinnerFrames[i%len(spinnerFrames)]), message)
			select {
			case <-done:
				// Braille frames render two columns wide.
				fmt.Fprint(w, "\r"+strings.Repeat(" ", len(message)+8)+"\r")
				return
			case <-ticker.C:
			}
		}
	}()

	err := op()
	close(done)
	<-stopped
	return err
}
