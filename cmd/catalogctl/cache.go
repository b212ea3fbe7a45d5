package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/edgecomet/catalog/internal/cache"
	"github.com/edgecomet/catalog/internal/catalog"
)

func cacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and invalidate products cache entries",
	}
	cmd.AddCommand(cacheGetCmd(), cacheDeleteCmd(), cacheListCmd())
	return cmd
}

func renderContextArgs(args []string) catalog.RenderContext {
	return catalog.RenderContext{DistributorID: args[0], OrderCycleID: args[1]}
}

func cacheGetCmd() *cobra.Command {
	var showPayload bool

	cmd := &cobra.Command{
		Use:   "get <distributor_id> <order_cycle_id>",
		Short: "Show the state of one cache entry",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession()
			if err != nil {
				return err
			}
			defer s.Close()

			store, err := s.cacheStore()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			key := renderContextArgs(args).CacheKey()
			entry, err := store.Read(ctx, key)
			if err != nil {
				return err
			}

			ttl := "-"
			if entry.State != cache.Absent {
				if d, err := s.redis.TTL(ctx, key); err == nil && d > 0 {
					ttl = d.Round(time.Second).String()
				} else if err == nil {
					ttl = "none"
				}
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "KEY\t%s\n", key)
			fmt.Fprintf(w, "STATE\t%s\n", entry.State)
			fmt.Fprintf(w, "SIZE\t%d\n", len(entry.Payload))
			fmt.Fprintf(w, "TTL\t%s\n", ttl)
			w.Flush()

			if showPayload && entry.State == cache.Populated {
				fmt.Println()
				os.Stdout.Write(entry.Payload)
				fmt.Println()
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&showPayload, "payload", false, "Print the cached payload")
	return cmd
}

func cacheDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <distributor_id> <order_cycle_id>",
		Short: "Delete a cache entry so the next request renders again",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession()
			if err != nil {
				return err
			}
			defer s.Close()

			store, err := s.cacheStore()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			key := renderContextArgs(args).CacheKey()
			existed, err := store.Exists(ctx, key)
			if err != nil {
				return err
			}
			if err := store.Delete(ctx, key); err != nil {
				return err
			}

			if existed {
				fmt.Printf("Deleted %s\n", key)
			} else {
				fmt.Printf("%s was not cached\n", key)
			}
			return nil
		},
	}
}

func cacheListCmd() *cobra.Command {
	var pattern string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List products cache entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession()
			if err != nil {
				return err
			}
			defer s.Close()

			store, err := s.cacheStore()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
			defer cancel()

			keys, err := store.Keys(ctx, pattern)
			if err != nil {
				return err
			}
			if len(keys) == 0 {
				fmt.Println("No cache entries found")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "KEY\tSTATE\tSIZE")
			for _, key := range keys {
				entry, err := store.Read(ctx, key)
				if err != nil {
					fmt.Fprintf(w, "%s\terror\t%v\n", key, err)
					continue
				}
				fmt.Fprintf(w, "%s\t%s\t%d\n", key, entry.State, len(entry.Payload))
			}
			w.Flush()
			return nil
		},
	}

	cmd.Flags().StringVar(&pattern, "pattern", catalog.KeyPrefix+"*", "Key glob pattern")
	return cmd
}
