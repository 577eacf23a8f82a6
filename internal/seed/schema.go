package seed

// LinksConfig is the top-level structure of a defaults file. Each entry
// holds one category, each category a list of single-key maps from link
// title to its properties, so that list order is the link order.
type LinksConfig []map[string][]map[string]LinkProps

// LinkProps are the properties of a single default link.
type LinkProps struct {
	URL         string `yaml:"url"`
	Description string `yaml:"description,omitempty"`
	Icon        string `yaml:"icon,omitempty"`
	CustomColor string `yaml:"customColor,omitempty"`
}
