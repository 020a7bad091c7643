package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	kiteconnect "github.com/zerodha/gokiteconnect/v4"
)

// Generates a Kite access token for the day. Run it each morning before
// starting the terminal with the LIVE data source.
func main() {
	_ = godotenv.Load()

	apiKey := os.Getenv("KITE_API_KEY")
	apiSecret := os.Getenv("KITE_API_SECRET")
	if apiKey == "" || apiSecret == "" {
		fatal("KITE_API_KEY and KITE_API_SECRET must be set")
	}

	kc := kiteconnect.New(apiKey)

	fmt.Println("1. Open the login URL in a browser:")
	fmt.Println()
	fmt.Println("   " + kc.GetLoginURL())
	fmt.Println()
	fmt.Println("2. Log in, then paste the request_token from the redirect URL.")
	fmt.Print("request_token: ")

	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() {
		fatal("no request token entered")
	}
	requestToken := strings.TrimSpace(scanner.Text())
	if requestToken == "" {
		fatal("no request token entered")
	}

	session, err := kc.GenerateSession(requestToken, apiSecret)
	if err != nil {
		fatal(fmt.Sprintf("generating session: %v", err))
	}

	fmt.Println()
	fmt.Printf("Session created for %s.\n", session.UserName)
	fmt.Println("Add this to your .env (the token expires at the end of the trading day):")
	fmt.Println()
	fmt.Printf("KITE_ACCESS_TOKEN=%s\n", session.AccessToken)
}

func fatal(msg string) {
	fmt.Fprintln(os.Stderr, "error:", msg)
	os.Exit(1)
}
