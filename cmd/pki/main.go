// Command pki provisions the signing key and self-signed timestamping
// certificate the server loads at startup, and prints a fresh token secret.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/dmitrijs2005/gophstamp/internal/buildinfo"
	"github.com/dmitrijs2005/gophstamp/internal/common"
	"github.com/dmitrijs2005/gophstamp/internal/server/signer"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	keyPath := flag.String("k", "pki/signing.key", "signing key output path (PEM)")
	certPath := flag.String("x", "pki/signing.crt", "certificate output path (PEM)")
	cn := flag.String("cn", "gophstamp timestamping authority", "certificate common name")
	org := flag.String("org", "", "certificate organization")
	country := flag.String("country", "", "certificate country code")
	days := flag.Int("days", 3650, "certificate validity (in days)")
	force := flag.Bool("f", false, "overwrite existing files")
	flag.Parse()

	if !*force {
		for _, p := range []string{*keyPath, *certPath} {
			if _, err := os.Stat(p); err == nil {
				log.Fatalf("%s already exists, use -f to overwrite", p)
			}
		}
	}

	subject := signer.Subject{CommonName: *cn, Organization: *org, Country: *country}
	validity := time.Duration(*days) * 24 * time.Hour

	if err := signer.GenerateSelfSigned(*keyPath, *certPath, subject, validity); err != nil {
		log.Fatalf("%v", err)
	}

	secret, err := common.MakeRandHexString(32)
	if err != nil {
		log.Fatalf("%v", err)
	}

	fmt.Printf("key written to %s\n", *keyPath)
	fmt.Printf("certificate written to %s\n", *certPath)
	fmt.Printf("token secret (pass with -s or secret_key in the config file): %s\n", secret)
}
