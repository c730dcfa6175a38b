package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"budgetanalyser/internal/core"
	"budgetanalyser/internal/mappings"
)

// runKeywords lists or extends the keyword mappings. New keywords go to
// the end of their rule so existing priorities are kept.
func runKeywords(ctx context.Context, a *app, args []string) error {
	flags := newFlagSet("keywords")
	sub := flags.String("sub-category", "", "sub-category to add description keywords to")
	cat := flags.String("category", "", "category to add sub-category names to")
	add := flags.String("add", "", "comma separated keywords to add")
	if err := flags.Parse(args); err != nil {
		return err
	}

	descPath, catPath := a.cfg.DescriptionMappingPath, a.cfg.SubCategoryMappingPath
	switch {
	case *sub != "" && *cat != "":
		return errors.New("use either -sub-category or -category")
	case *sub != "":
		return addKeywords(a, descPath, *sub, *add, a.mappings.SaveDescriptionToSubCategory)
	case *cat != "":
		return addKeywords(a, catPath, *cat, *add, a.mappings.SaveSubCategoryToCategory)
	}

	for _, m := range []struct{ title, path string }{
		{"description -> sub_category", descPath},
		{"sub_category -> category", catPath},
	} {
		rules, err := loadOrEmpty(m.path)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "== %s ==\n", m.title)
		tw := table(a.out)
		for _, r := range rules {
			fmt.Fprintf(tw, "%s\t%s\t\n", r.Label, strings.Join(r.Keywords, ", "))
		}
		tw.Flush()
		fmt.Fprintln(a.out)
	}
	return nil
}

func addKeywords(a *app, path, label, list string, save func(core.KeywordMapping) error) error {
	var keywords []string
	for _, k := range strings.Split(list, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keywords = append(keywords, k)
		}
	}
	if len(keywords) == 0 {
		return errors.New("-add needs at least one keyword")
	}
	rules, err := loadOrEmpty(path)
	if err != nil {
		return err
	}
	if err := save(mappings.AddKeywords(rules, label, keywords...)); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s: added %s\n", label, strings.Join(keywords, ", "))
	return nil
}

// loadOrEmpty treats a missing mapping file as an empty mapping.
func loadOrEmpty(path string) (core.KeywordMapping, error) {
	m, err := mappings.LoadKeywordMapping(path)
	if errors.Is(err, fs.ErrNotExist) {
		return core.KeywordMapping{}, nil
	}
	return m, err
}
