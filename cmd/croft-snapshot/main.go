// croft-snapshot inspects and exports the snapshot database written by the
// control plane. It is an offline tool: run it against a copy, or while the
// control plane is stopped.
package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"
	"sort"

	"github.com/croftlabs/croft/pkg/store"
)

var (
	dbPath     = flag.String("path", "/var/lib/croft/croft.db", "Snapshot database path")
	exportPath = flag.String("export", "", "Write the snapshot as JSON to this file")
)

func main() {
	flag.Parse()
	log.SetFlags(log.LstdFlags)

	if _, err := os.Stat(*dbPath); os.IsNotExist(err) {
		log.Fatalf("Snapshot database not found at %s", *dbPath)
	}

	s, err := store.NewBoltStore(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer s.Close()

	snap, err := s.Load()
	if err != nil {
		log.Fatalf("Failed to load snapshot: %v", err)
	}
	if snap == nil {
		log.Println("Database contains no snapshot")
		return
	}

	log.Printf("Snapshot taken at: %s", snap.TakenAt)
	log.Printf("  Nodes:            %d", len(snap.Nodes))
	log.Printf("  Pods:             %d", len(snap.Pods))
	log.Printf("  Packs:            %d", len(snap.Packs))
	log.Printf("  Namespaces:       %d", len(snap.Namespaces))
	log.Printf("  Priority classes: %d", len(snap.PriorityClasses))
	log.Printf("  Pod histories:    %d", len(snap.Histories))

	byNamespace := make(map[string]int)
	for _, p := range snap.Pods {
		byNamespace[p.Namespace]++
	}
	names := make([]string, 0, len(byNamespace))
	for name := range byNamespace {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		log.Printf("  Pods in %-12s %d", name+":", byNamespace[name])
	}

	if *exportPath == "" {
		return
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		log.Fatalf("Failed to encode snapshot: %v", err)
	}
	if err := os.WriteFile(*exportPath, data, 0600); err != nil {
		log.Fatalf("Failed to write export: %v", err)
	}
	log.Printf("Snapshot exported to %s", *exportPath)
}
