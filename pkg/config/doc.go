// Package config loads ved rule files.
//
//	            +-------------+
//	            |   Config    |
//	            |   (Rules)   |
//	            +------+------+
//	                   |
//	   +-------+-------+-------+-------+
//	   |       |       |       |       |
//	 YAML    JSON     HCL    TOML     KDL
//
// 🎯 Purpose:
// - Reads a list of search-and-replace rules plus run settings
// - Picks a parser from the file extension through a small registry
// - Validates rules and fills defaults before anything is rewritten
//
// 🔄 Flow:
// 1. Load reads the file
// 2. The registered Parser for the extension decodes it; unknown fields fail
// 3. Validate cleans paths, defaults path to "." and workers to GOMAXPROCS
// 4. TextRules hands the rules to the replacement engine
//
// 🔍 Example:
//
//	# ved.yaml
//	workers: 8
//	rules:
//	  - search: ["oldName"]
//	    replace: newName
//	    path: "src/**/*.go"
//	  - search: ["if err != nil {", "    return err"]
//	    replace: "if err != nil {\n    return wrap(err)"
//
//	cfg, err := config.Load(ctx, "ved.yaml")
//	if err != nil {
//		return err
//	}
//	results, err := runner.RunRules(ctx, cfg.TextRules())
package config
