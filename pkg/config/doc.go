/*
Package config manages configuration parsing and validation for profilesync.

	            +-------------+
	            |   Config    |
	            | (Default()) |
	            +------+------+
	                   |
	      +------------+------------+
	      |            |            |
	+-----+----+ +-----+----+ +-----+----+
	|   YAML   | |   HCL    | |   JSON   |
	|  Parser  | |  Parser  | |  Parser  |
	+----------+ +----------+ +----------+

🎯 Purpose:
- Loads profilesync.{yaml,yml,hcl,json}
- Applies defaults for every omitted field
- Rejects unknown fields
- Converts sections into the inputs of plan, robocopy, registry and motw

🔄 Flow:
1. Find locates a default file, or the caller names one
2. The parser for the extension decodes onto Default()
3. Validate checks the rule set and numeric ranges
4. Flags and prompts fill in machine, user and destination
5. Converters (ProfileSpec, SyncRules, RobocopyOptions, RegistryJobs) feed the run

⚡ HCL extras:
- rule blocks are labelled with their action
- env.NAME reads environment variables

	profile {
	  machine     = "WS-07"
	  user        = "jsmith"
	  destination = "D:\\Backups\\jsmith"
	}

	rule "include" {
	  pattern = "AppData\\Roaming"
	}

	auth {
	  username     = env.SYNC_USER
	  password_env = "SYNC_PASSWORD"
	}

🔍 Example:

	cfg, err := config.Load(ctx, "profilesync.yaml")
	if err != nil {
		return err
	}
	p, err := plan.Resolve(cfg.ProfileSpec(), cfg.SyncRules())
*/
package config
