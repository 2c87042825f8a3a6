package main

import (
	"fmt"
	"os"

	"github.com/ispadmin-io/ispadmin/services/subscription"
)

func main() {
	if err := subscription.SubscriptionServiceCommand().Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
