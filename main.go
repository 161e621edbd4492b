package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/urfave/cli/v2"
	"github.com/xcono/parkrest/migrate"
	"github.com/xcono/parkrest/schema"
	"github.com/xcono/parkrest/store"
	"github.com/xcono/parkrest/web"
	"github.com/zeromicro/go-zero/core/conf"

	// database drivers selected by DSN scheme
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

var configFile = flag.String("f", "config.yaml", "the config file")

func main() {

	flag.Parse()

	var c schema.Config
	conf.MustLoad(*configFile, &c)

	registry := schema.DefaultRegistry()

	app := &cli.App{
		Name:  "parkrest",
		Usage: "Parking management REST service",
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "Start serving the API",
				Args:  true,
				Action: func(cmd *cli.Context) error {

					return web.StartServer(c, registry) // blocking call
				},
			},
			{
				Name:  "inspect",
				Usage: "Print the entity configuration",
				Args:  true,
				Action: func(cmd *cli.Context) error {

					entities := make(map[string]*schema.EntitySchema)
					for _, name := range registry.Names() {
						s, err := registry.Resolve(name)
						if err != nil {
							return err
						}
						entities[name] = s
					}

					jsonData, err := json.MarshalIndent(entities, "", "  ")
					if err != nil {
						return err
					}
					fmt.Println(string(jsonData))

					return nil
				},
			},
			{
				Name:  "migrate",
				Usage: "Create tables and seed the admin account",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "admin-email", Value: "admin@parkrest.local", Usage: "seeded admin email"},
					&cli.StringFlag{Name: "admin-password", Usage: "seeded admin password, skipped when empty"},
				},
				Action: func(cmd *cli.Context) error {

					db, err := schema.OpenDB(c.DSN)
					if err != nil {
						return err
					}
					defer db.Close()

					exec := store.NewExecutor(db)
					flavor := store.FlavorForDSN(c.DSN)
					ctx := context.Background()

					if err := migrate.CreateTables(ctx, exec, registry, flavor); err != nil {
						return err
					}

					if password := cmd.String("admin-password"); password != "" {
						return migrate.SeedAdmin(ctx, exec, flavor, cmd.String("admin-email"), password)
					}
					return nil
				},
			},
		},
	}

	sort.Sort(cli.FlagsByName(app.Flags))
	sort.Sort(cli.CommandsByName(app.Commands))

	if err := app.Run(os.Args); err != nil {
		panic(err)
	}
}
