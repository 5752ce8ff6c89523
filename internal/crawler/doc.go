// Package crawler holds the types and ports shared by the fetchers, the
// link classifier, the site pipeline and the corpus crawler.
package crawler
