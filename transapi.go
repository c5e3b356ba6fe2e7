// Package transapi answers "what translation data exists for this plugin,
// theme, or core, in this locale, at this version?" by asking a remote
// translation service and caching the answer for three hours.
//
// Basic usage:
//
//	import (
//	    "context"
//	    "github.com/ZaguanLabs/transapi"
//	    "github.com/ZaguanLabs/transapi/cache"
//	    "github.com/ZaguanLabs/transapi/remote"
//	)
//
//	func main() {
//	    fetcher := remote.New(remote.Config{
//	        Endpoint:    "https://api.example.com/translate",
//	        HostVersion: "6.5.2",
//	    })
//
//	    gw := transapi.NewGateway(cache.NewMemoryStore(), fetcher)
//
//	    result, err := gw.Lookup(context.Background(), transapi.LookupRequest{
//	        Kind:    transapi.KindPlugin,
//	        Slug:    "akismet",
//	        Version: "5.0",
//	        Locale:  "fr_FR",
//	    })
//	    if err != nil {
//	        log.Fatal(transapi.UserMessage(err))
//	    }
//	    fmt.Println(string(result.Raw()))
//	}
package transapi
