/*
Command mailer validates mail settings and sends single messages over SMTP.
*/
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
