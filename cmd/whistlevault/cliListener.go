package main

import (
	"fmt"
	"os"
	"time"

	"github.com/eiannone/keyboard"

	"whistlevault/database"
	"whistlevault/intake/reports"
	"whistlevault/whistlevault"
)

// cliListener is a cheap and nasty way to speed up development cycles. It listens for keypresses and executes commands.
func cliListener(interrupt chan struct{}) {
	fmt.Println("Press:\nq: to quit\nr: to print reports\nu: to print registered users\nb: to back up the data directory")
	for {
		r, k, err := keyboard.GetSingleKey()
		if err != nil {
			whistlevault.LogCLI(err.Error(), 1)
			return
		}
		str := string(r)
		switch str {
		default:
			if k == 13 {
				fmt.Println("\n-----------------------------------")
				break
			}
			if r == 0 {
				break
			}
			fmt.Println("Key " + str + " is not bound to anything. See main.cliListener for more details.")
		case "q":
			whistlevault.Shutdown()
			go func() {
				whistlevault.LogCLI("User requested to terminate", 4)
				//If everything goes well, closing the interrupt channel should shutdown cleanly before terminating.
				//If something goes wrong we kill the process.
				time.Sleep(time.Second * 10)
				println("Something didn't shutdown cleanly, terminating anyway.")
				os.Exit(0)
			}()
			return
		case "r":
			for _, report := range reports.ListReports("") {
				fmt.Printf("%s  %s  %s  %s  (%d comments)\n",
					report.ID, report.Date, report.Status, report.WalletAddress, len(report.Comments))
			}
		case "u":
			for _, outcome := range reports.RegisteredWallets() {
				fmt.Println(outcome)
			}
		case "b":
			database.Backup()
		}
	}
}
