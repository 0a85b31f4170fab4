package cmd

import (
	"fmt"
	"io"
	"log"
	"os"
)

var (
	// globals used to patch over calls to os.Exit() during test

	logFatalln = log.Fatalln
	logFatalf  = log.Fatalf
	osExit     = os.Exit

	// infoLogger wraps informative messages to os.Stdout without cluttering expected output in tests.
	infoLogger = log.New(os.Stdout, "", 0)

	// used to patch over the interactive confirmation during test
	stdin io.Reader = os.Stdin
)

func wrapFatalln(msg string, err error) {
	if err == nil {
		logFatalln(msg)
	} else {
		logFatalf("%v", fmt.Errorf(msg+": %w", err))
	}
}

func logStdOut(format string, args ...interface{}) {
	infoLogger.Printf(format, args...)
}
