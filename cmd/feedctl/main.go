// feedctl inspects a feed database offline: it opens BadgerDB read-only
// and prints the message log in acceptance order.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/kelseyhightower/envconfig"
	"github.com/olekukonko/tablewriter"

	"feedlab/repositories"
)

type config struct {
	BadgerFilepath string `envconfig:"BADGER_FILEPATH" required:"true"`
}

func main() {
	var cfg config
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("Config error: %v", err)
	}

	sender := flag.String("sender", "", "Only show messages from this sender")
	limit := flag.Int("limit", 0, "Max rows to print (0 = all)")
	flag.Parse()

	db, err := openDB(cfg.BadgerFilepath)
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	messages, err := loadMessages(db)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(color.New(color.BgBlack, color.FgGreen).
		Render(fmt.Sprintf(" feed: %d message(s) ", len(messages))))

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Seq", "Timestamp", "Sender", "Lang", "ID", "Content"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	printed := 0
	for _, m := range messages {
		if *sender != "" && m.Sender != *sender {
			continue
		}
		if *limit > 0 && printed >= *limit {
			break
		}

		stamp := time.UnixMilli(m.Timestamp).UTC().Format("2006-01-02 15:04:05")
		displayID := m.ID.String()[:8]

		table.Append([]string{
			fmt.Sprintf("%d", m.Seq),
			stamp,
			m.Sender,
			m.Language,
			displayID,
			m.Content,
		})
		printed++
	}

	table.Render()
}

// loadMessages scans the message prefix directly instead of going
// through the repository, so a record the server would skip as corrupt
// still shows up here as an error line.
func loadMessages(db *badger.DB) ([]repositories.DiskMessage, error) {
	var messages []repositories.DiskMessage
	err := db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte("msg:")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			err := item.Value(func(v []byte) error {
				var m repositories.DiskMessage
				if err := json.Unmarshal(v, &m); err != nil {
					fmt.Printf("Error unmarshaling key %s: %v\n", string(item.Key()), err)
					return nil
				}
				messages = append(messages, m)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return messages, err
}

func openDB(path string) (*badger.DB, error) {
	// BypassLockGuard allows opening while the server holds the lock.
	opts := badger.DefaultOptions(path).
		WithReadOnly(true).
		WithLogger(nil).
		WithBypassLockGuard(true)
	return badger.Open(opts)
}
