package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/fentz26/shelfcam/internal/catalog"
	"github.com/fentz26/shelfcam/internal/device/sim"
	"github.com/fentz26/shelfcam/internal/models"
)

var productsCmd = &cobra.Command{
	Use:   "products",
	Short: "Manage registered products",
}

var productsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List products, newest first",
	RunE:  runProductsList,
}

var productsShowCmd = &cobra.Command{
	Use:   "show [product-id]",
	Short: "Show product details",
	Args:  cobra.ExactArgs(1),
	RunE:  runProductsShow,
}

var productsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register a product with the pending image",
	Long: `Register a product. The image is the one last accepted from a capture
or gallery screen, unless --image names a file to use instead.`,
	RunE: runProductsAdd,
}

var productsPendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "Show the image waiting for registration",
	RunE:  runProductsPending,
}

var (
	productName  string
	productPrice string
	productDesc  string
	productUser  string
	productImage string
	productLimit int
	outputJSON   bool
	clearPending bool
)

func init() {
	productsCmd.AddCommand(productsListCmd, productsShowCmd, productsAddCmd, productsPendingCmd)

	productsListCmd.Flags().IntVar(&productLimit, "limit", 50, "Maximum number of products")
	productsListCmd.Flags().BoolVar(&outputJSON, "json", false, "Output as JSON")
	productsShowCmd.Flags().BoolVar(&outputJSON, "json", false, "Output as JSON")

	productsAddCmd.Flags().StringVar(&productName, "name", "", "Product name")
	productsAddCmd.Flags().StringVar(&productPrice, "price", "", "Product price")
	productsAddCmd.Flags().StringVar(&productDesc, "desc", "", "Product description")
	productsAddCmd.Flags().StringVar(&productUser, "user", "", "Registering user")
	productsAddCmd.Flags().StringVar(&productImage, "image", "", "Image file to use instead of the pending image")

	productsPendingCmd.Flags().BoolVar(&clearPending, "clear", false, "Discard the pending image")
}

func runProductsList(cmd *cobra.Command, args []string) error {
	return withBackend(func(b *backend) error {
		products, err := b.catalog.ListProducts(productLimit)
		if err != nil {
			return err
		}
		if outputJSON {
			return printJSON(products)
		}
		if len(products) == 0 {
			fmt.Println("No products found.")
			return nil
		}

		tw := table.NewWriter()
		tw.SetOutputMirror(os.Stdout)
		tw.AppendHeader(table.Row{"ID", "Name", "Price", "User", "Added"})
		for _, p := range products {
			tw.AppendRow(table.Row{shortID(p.ID), p.Name, p.Price, p.User, humanize.Time(p.CreatedAt)})
		}
		tw.Render()
		return nil
	})
}

func runProductsShow(cmd *cobra.Command, args []string) error {
	return withBackend(func(b *backend) error {
		p, err := b.catalog.GetProduct(args[0])
		if err != nil {
			return err
		}
		if outputJSON {
			return printJSON(p)
		}
		printProduct(p)
		return nil
	})
}

func runProductsAdd(cmd *cobra.Command, args []string) error {
	return withBackend(func(b *backend) error {
		ctx := cmd.Context()
		if productImage != "" {
			if _, err := os.Stat(productImage); err != nil {
				return fmt.Errorf("image: %w", err)
			}
			err := b.catalog.AcceptArtifact(ctx, models.Artifact{
				Locator: sim.FileLocator(productImage),
				Kind:    models.ArtifactGallery,
			})
			if err != nil {
				return err
			}
		}

		p, err := b.catalog.RegisterProduct(ctx, catalog.ProductInput{
			Name:        productName,
			Price:       productPrice,
			Description: productDesc,
			User:        productUser,
		})
		if err != nil {
			return err
		}
		fmt.Printf("✓ Registered product %s\n", p.ID)
		printProduct(p)
		return nil
	})
}

func runProductsPending(cmd *cobra.Command, args []string) error {
	return withBackend(func(b *backend) error {
		if clearPending {
			if err := b.catalog.ClearPending(cmd.Context()); err != nil {
				return err
			}
			fmt.Println("Pending image cleared.")
			return nil
		}
		pending, err := b.catalog.PendingImage()
		if err != nil {
			return err
		}
		if pending == nil {
			fmt.Println("No pending image.")
			return nil
		}
		fmt.Printf("%s (%s, %s)\n", pending.Locator, pending.Kind, humanize.Time(pending.UpdatedAt))
		return nil
	})
}

func printProduct(p *models.Product) {
	fmt.Printf("ID:          %s\n", p.ID)
	fmt.Printf("Name:        %s\n", p.Name)
	fmt.Printf("Price:       %s\n", p.Price)
	fmt.Printf("User:        %s\n", p.User)
	fmt.Printf("Image:       %s\n", p.ImageURI)
	fmt.Printf("Added:       %s\n", humanize.Time(p.CreatedAt))
	if p.Description != "" {
		fmt.Printf("Description: %s\n", p.Description)
	}
}

// withBackend loads the config, opens the store and runs fn against it.
func withBackend(fn func(b *backend) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	b, err := openBackend(cfg)
	if err != nil {
		return err
	}
	defer b.Close()
	return fn(b)
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
