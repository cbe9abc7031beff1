// Package film defines the records, collaborator interfaces, and product-code
// normalization shared by the scraping pipeline.
package film
