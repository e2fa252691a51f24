package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"nifty-meanrev/internal/bootstrap"
	"nifty-meanrev/internal/broker/zerodha"
)

func main() {
	envPath := flag.String("env", ".env", "env file holding KITE_API_KEY and KITE_API_SECRET")
	flag.Parse()

	env, err := godotenv.Read(*envPath)
	if err != nil {
		env = map[string]string{}
	}
	apiKey := firstNonEmpty(os.Getenv("KITE_API_KEY"), env["KITE_API_KEY"])
	apiSecret := firstNonEmpty(os.Getenv("KITE_API_SECRET"), env["KITE_API_SECRET"])
	if apiKey == "" || apiSecret == "" {
		fmt.Println("Error: KITE_API_KEY and KITE_API_SECRET must be set")
		os.Exit(1)
	}

	fmt.Println("Open this URL and log in:")
	fmt.Println(zerodha.LoginURL(apiKey))
	fmt.Print("Paste the redirect URL (or request_token): ")

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		bootstrap.Must(err)
	}
	reqToken, err := zerodha.RequestToken(line)
	bootstrap.Must(err)

	access, err := zerodha.GenerateAccessToken(apiKey, apiSecret, reqToken)
	bootstrap.Must(err)

	env["KITE_API_KEY"] = apiKey
	env["KITE_API_SECRET"] = apiSecret
	env["KITE_ACCESS_TOKEN"] = access
	bootstrap.Must(godotenv.Write(env, *envPath))
	fmt.Println("Access token saved to", *envPath)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
