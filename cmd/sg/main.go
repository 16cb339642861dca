package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"stagegate/internal/app"
	"stagegate/internal/config"
	"stagegate/internal/db"
	"stagegate/internal/domain"
	"stagegate/internal/engine"
	sglog "stagegate/internal/log"
	"stagegate/internal/migrate"
	"stagegate/internal/notify"
	"stagegate/internal/repo"
	"stagegate/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "sg",
	Short: "Stagegate CLI",
	Long: `Stagegate tracks IT work packages through a staged delivery lifecycle:
ideation -> feasibility -> scoping -> scheduling -> detailed design ->
development -> testing -> deployed -> completed. Gated actions (approve,
submit, schedule, accept) enforce that each stage's record is complete before
the package moves on, every change lands in an append-only history, and
notification rules fan events out to role and user mailboxes.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		sglog.Setup(viper.GetString("log-level"))
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("STAGEGATE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("actor-id", "local-user", "actor identifier")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("actor-id", rootCmd.PersistentFlags().Lookup("actor-id"))
	_ = viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func registerCommands() {
	rootCmd.AddCommand(wpCmd())
	rootCmd.AddCommand(feasibilityCmd())
	rootCmd.AddCommand(scopingCmd())
	rootCmd.AddCommand(schedulingCmd())
	rootCmd.AddCommand(designCmd())
	rootCmd.AddCommand(developmentCmd())
	rootCmd.AddCommand(buildCmd())
	rootCmd.AddCommand(testingCmd())
	rootCmd.AddCommand(deploymentCmd())
	rootCmd.AddCommand(ruleCmd())
	rootCmd.AddCommand(userCmd())
	rootCmd.AddCommand(roleCmd())
	rootCmd.AddCommand(mailCmd())
	rootCmd.AddCommand(apiKeyCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(serveCmd())
}

// --- work packages ---

func wpCmd() *cobra.Command {
	wp := &cobra.Command{Use: "wp", Short: "Manage work packages"}
	wp.AddCommand(wpCreateCmd())
	wp.AddCommand(wpListCmd())
	wp.AddCommand(wpShowCmd())
	wp.AddCommand(wpAdvanceCmd())
	wp.AddCommand(wpCancelCmd())
	wp.AddCommand(wpHistoryCmd())
	return wp
}

func wpCreateCmd() *cobra.Command {
	var title, owner string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create work package",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				wp, err := e.CreateWorkPackage(ctx, title, owner, actorID())
				if err != nil {
					return err
				}
				return printJSONOrTable(wp)
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "work package title")
	cmd.Flags().StringVar(&owner, "owner", "", "owner user id")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func wpListCmd() *cobra.Command {
	var status, owner string
	var all bool
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List work packages",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.Repo.ListWorkPackages(ctx, repo.WorkPackageFilters{
					Status:          domain.Status(status),
					OwnerID:         owner,
					IncludeInactive: all,
					Limit:           limit,
				})
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Title", "Status", "Owner", "Updated"})
				for _, wp := range items {
					tw.AppendRow(table.Row{wp.ID, wp.Title, wp.Status, wp.OwnerID, wp.UpdatedAt})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "status filter")
	cmd.Flags().StringVar(&owner, "owner", "", "owner filter")
	cmd.Flags().BoolVar(&all, "all", false, "include cancelled")
	cmd.Flags().IntVar(&limit, "limit", 50, "max rows")
	return cmd
}

func wpShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a work package",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				wp, err := e.Repo.GetWorkPackage(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(wp)
			})
		},
	}
	return cmd
}

func wpAdvanceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "advance <id>",
		Short: "Advance to the next stage without gate checks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				wp, err := e.AdvanceToNextStage(ctx, args[0], actorID())
				if err != nil {
					return err
				}
				return printJSONOrTable(wp)
			})
		},
	}
	return cmd
}

func wpCancelCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cancel <id>",
		Short: "Cancel a work package",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				wp, err := e.CancelWorkPackage(ctx, args[0], actorID())
				if err != nil {
					return err
				}
				return printJSONOrTable(wp)
			})
		},
	}
	return cmd
}

func wpHistoryCmd() *cobra.Command {
	var n int
	cmd := &cobra.Command{
		Use:   "history <id>",
		Short: "Show work package history, oldest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				entries, err := e.Repo.ListHistory(ctx, args[0], n)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(entries)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"When", "Actor", "Description"})
				for _, h := range entries {
					actor := "system"
					if h.ActorID != nil {
						actor = *h.ActorID
					}
					tw.AppendRow(table.Row{h.CreatedAt, actor, h.Description})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 0, "max entries (0 = all)")
	return cmd
}

// --- feasibility ---

func feasibilityCmd() *cobra.Command {
	c := &cobra.Command{Use: "feasibility", Short: "Feasibility stage"}
	c.AddCommand(feasibilitySetCmd())
	c.AddCommand(feasibilityApproveCmd())
	c.AddCommand(feasibilityRejectCmd())
	return c
}

func feasibilitySetCmd() *cobra.Command {
	var assessedBy, dateAssessed, credence, costBenefit, deps, alternative, existing, existingNotes string
	cmd := &cobra.Command{
		Use:   "set <id>",
		Short: "Update feasibility assessment fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			form := engine.FeasibilityForm{
				AssessedBy:                changedString(cmd, "assessed-by", &assessedBy),
				DateAssessed:              changedString(cmd, "date-assessed", &dateAssessed),
				TechnicalCredence:         changedString(cmd, "technical-credence", &credence),
				CostBenefitCase:           changedString(cmd, "cost-benefit", &costBenefit),
				DependenciesPrerequisites: changedString(cmd, "dependencies", &deps),
				AlternativeProposal:       changedString(cmd, "alternative", &alternative),
				ExistingSolutionStatus:    changedString(cmd, "existing-solution", &existing),
				ExistingSolutionNotes:     changedString(cmd, "existing-solution-notes", &existingNotes),
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				rec, err := e.SaveFeasibility(ctx, args[0], actorID(), form)
				if err != nil {
					return err
				}
				return printJSONOrTable(rec)
			})
		},
	}
	cmd.Flags().StringVar(&assessedBy, "assessed-by", "", "assessor")
	cmd.Flags().StringVar(&dateAssessed, "date-assessed", "", "assessment date")
	cmd.Flags().StringVar(&credence, "technical-credence", "", "technical credence")
	cmd.Flags().StringVar(&costBenefit, "cost-benefit", "", "cost/benefit case")
	cmd.Flags().StringVar(&deps, "dependencies", "", "dependencies and prerequisites")
	cmd.Flags().StringVar(&alternative, "alternative", "", "alternative proposal")
	cmd.Flags().StringVar(&existing, "existing-solution", "", "existing solution status (yes|no|partial)")
	cmd.Flags().StringVar(&existingNotes, "existing-solution-notes", "", "why the existing solution is not used")
	return cmd
}

func feasibilityApproveCmd() *cobra.Command {
	return actionCmd("approve <id>", "Approve feasibility and advance to scoping",
		func(e engine.Engine, ctx context.Context, id string) (domain.WorkPackage, error) {
			return e.ApproveFeasibility(ctx, id, actorID())
		})
}

func feasibilityRejectCmd() *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "reject <id>",
		Short: "Reject feasibility with a reason",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				wp, err := e.RejectFeasibility(ctx, args[0], reason, actorID())
				if err != nil {
					return err
				}
				return printJSONOrTable(wp)
			})
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "rejection reason")
	_ = cmd.MarkFlagRequired("reason")
	return cmd
}

// --- scoping ---

func scopingCmd() *cobra.Command {
	c := &cobra.Command{Use: "scoping", Short: "Scoping stage"}
	c.AddCommand(scopingSetCmd())
	c.AddCommand(actionCmd("submit <id>", "Submit scoping and advance to scheduling",
		func(e engine.Engine, ctx context.Context, id string) (domain.WorkPackage, error) {
			return e.SubmitScoping(ctx, id, actorID())
		}))
	return c
}

func scopingSetCmd() *cobra.Command {
	var assessedBy, effort, inScope, outOfScope, assumptions string
	var skills []string
	cmd := &cobra.Command{
		Use:   "set <id>",
		Short: "Update scoping assessment fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			form := engine.ScopingForm{
				AssessedBy:  changedString(cmd, "assessed-by", &assessedBy),
				EffortScale: changedString(cmd, "effort", &effort),
				InScope:     changedString(cmd, "in-scope", &inScope),
				OutOfScope:  changedString(cmd, "out-of-scope", &outOfScope),
				Assumptions: changedString(cmd, "assumptions", &assumptions),
			}
			if cmd.Flags().Changed("skill") {
				form.RequiredSkills = &skills
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				rec, err := e.SaveScoping(ctx, args[0], actorID(), form)
				if err != nil {
					return err
				}
				return printJSONOrTable(rec)
			})
		},
	}
	cmd.Flags().StringVar(&assessedBy, "assessed-by", "", "assessor")
	cmd.Flags().StringVar(&effort, "effort", "", "effort scale (small|medium|large|extra_large)")
	cmd.Flags().StringVar(&inScope, "in-scope", "", "in scope")
	cmd.Flags().StringVar(&outOfScope, "out-of-scope", "", "out of scope")
	cmd.Flags().StringVar(&assumptions, "assumptions", "", "assumptions")
	cmd.Flags().StringArrayVar(&skills, "skill", []string{}, "required skill (repeatable)")
	return cmd
}

// --- scheduling ---

func schedulingCmd() *cobra.Command {
	c := &cobra.Command{Use: "scheduling", Short: "Scheduling stage"}
	c.AddCommand(schedulingSetCmd())
	c.AddCommand(actionCmd("submit <id>", "Submit scheduling plan to DCGG",
		func(e engine.Engine, ctx context.Context, id string) (domain.WorkPackage, error) {
			return e.SubmitSchedulingToDCGG(ctx, id, actorID())
		}))
	c.AddCommand(actionCmd("schedule <id>", "Record change board schedule and advance",
		func(e engine.Engine, ctx context.Context, id string) (domain.WorkPackage, error) {
			return e.ScheduleScheduling(ctx, id, actorID())
		}))
	return c
}

func schedulingSetCmd() *cobra.Command {
	var keySkills, priority, assignee, start, completion, board string
	cmd := &cobra.Command{
		Use:   "set <id>",
		Short: "Update scheduling plan fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			form := engine.SchedulingForm{
				KeySkills:       changedString(cmd, "key-skills", &keySkills),
				Priority:        changedString(cmd, "priority", &priority),
				AssigneeID:      changedString(cmd, "assignee", &assignee),
				StartDate:       changedString(cmd, "start", &start),
				CompletionDate:  changedString(cmd, "completion", &completion),
				ChangeBoardDate: changedString(cmd, "board-date", &board),
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				rec, err := e.SaveScheduling(ctx, args[0], actorID(), form)
				if err != nil {
					return err
				}
				return printJSONOrTable(rec)
			})
		},
	}
	cmd.Flags().StringVar(&keySkills, "key-skills", "", "key skills")
	cmd.Flags().StringVar(&priority, "priority", "", "priority (low|medium|high|critical)")
	cmd.Flags().StringVar(&assignee, "assignee", "", "assignee user id")
	cmd.Flags().StringVar(&start, "start", "", "start date")
	cmd.Flags().StringVar(&completion, "completion", "", "completion date")
	cmd.Flags().StringVar(&board, "board-date", "", "change board date")
	return cmd
}

// --- detailed design / development / build ---

func designCmd() *cobra.Command {
	var designedBy, summary, docURL string
	set := &cobra.Command{
		Use:   "set <id>",
		Short: "Update detailed design fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			form := engine.DetailedDesignForm{
				DesignedBy:    changedString(cmd, "designed-by", &designedBy),
				DesignSummary: changedString(cmd, "summary", &summary),
				DocumentURL:   changedString(cmd, "doc-url", &docURL),
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				rec, err := e.SaveDetailedDesign(ctx, args[0], actorID(), form)
				if err != nil {
					return err
				}
				return printJSONOrTable(rec)
			})
		},
	}
	set.Flags().StringVar(&designedBy, "designed-by", "", "designer")
	set.Flags().StringVar(&summary, "summary", "", "design summary")
	set.Flags().StringVar(&docURL, "doc-url", "", "design document URL")
	c := &cobra.Command{Use: "design", Short: "Detailed design stage"}
	c.AddCommand(set)
	return c
}

func developmentCmd() *cobra.Command {
	var lead, repoURL, notes string
	set := &cobra.Command{
		Use:   "set <id>",
		Short: "Update development fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			form := engine.DevelopmentForm{
				LeadDeveloper: changedString(cmd, "lead", &lead),
				RepositoryURL: changedString(cmd, "repo-url", &repoURL),
				Notes:         changedString(cmd, "notes", &notes),
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				rec, err := e.SaveDevelopment(ctx, args[0], actorID(), form)
				if err != nil {
					return err
				}
				return printJSONOrTable(rec)
			})
		},
	}
	set.Flags().StringVar(&lead, "lead", "", "lead developer")
	set.Flags().StringVar(&repoURL, "repo-url", "", "repository URL")
	set.Flags().StringVar(&notes, "notes", "", "notes")
	c := &cobra.Command{Use: "development", Short: "Development stage"}
	c.AddCommand(set)
	return c
}

func buildCmd() *cobra.Command {
	var env, version, notes string
	set := &cobra.Command{
		Use:   "set <id>",
		Short: "Update build fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			form := engine.BuildForm{
				Environment:    changedString(cmd, "env", &env),
				ReleaseVersion: changedString(cmd, "version", &version),
				Notes:          changedString(cmd, "notes", &notes),
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				rec, err := e.SaveBuild(ctx, args[0], actorID(), form)
				if err != nil {
					return err
				}
				return printJSONOrTable(rec)
			})
		},
	}
	set.Flags().StringVar(&env, "env", "", "target environment")
	set.Flags().StringVar(&version, "version", "", "release version")
	set.Flags().StringVar(&notes, "notes", "", "notes")
	c := &cobra.Command{Use: "build", Short: "Build stage"}
	c.AddCommand(set)
	return c
}

// --- testing ---

func testingCmd() *cobra.Command {
	c := &cobra.Command{Use: "testing", Short: "Testing stage"}
	c.AddCommand(testingSetCmd())
	c.AddCommand(testingUATRequestCmd())
	c.AddCommand(actionCmd("service-acceptance <id>", "Request service acceptance after UAT",
		func(e engine.Engine, ctx context.Context, id string) (domain.WorkPackage, error) {
			return e.RequestServiceAcceptance(ctx, id, actorID())
		}))
	c.AddCommand(actionCmd("submit <id>", "Submit testing and advance to deployed",
		func(e engine.Engine, ctx context.Context, id string) (domain.WorkPackage, error) {
			return e.SubmitTesting(ctx, id, actorID())
		}))
	return c
}

func testingSetCmd() *cobra.Command {
	var tester, testing, uat, lead, delivery, resilience string
	cmd := &cobra.Command{
		Use:   "set <id>",
		Short: "Update testing sign-offs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			form := engine.TestingForm{
				UATTesterID:       changedString(cmd, "tester", &tester),
				Testing:           changedSignOff(cmd, "testing", &testing),
				UserAcceptance:    changedSignOff(cmd, "user-acceptance", &uat),
				TestingLead:       changedSignOff(cmd, "lead", &lead),
				ServiceDelivery:   changedSignOff(cmd, "service-delivery", &delivery),
				ServiceResilience: changedSignOff(cmd, "service-resilience", &resilience),
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				rec, err := e.SaveTesting(ctx, args[0], actorID(), form)
				if err != nil {
					return err
				}
				return printJSONOrTable(rec)
			})
		},
	}
	cmd.Flags().StringVar(&tester, "tester", "", "UAT tester user id")
	cmd.Flags().StringVar(&testing, "testing", "", "testing sign-off (pending|approved|rejected)")
	cmd.Flags().StringVar(&uat, "user-acceptance", "", "user acceptance sign-off")
	cmd.Flags().StringVar(&lead, "lead", "", "testing lead sign-off")
	cmd.Flags().StringVar(&delivery, "service-delivery", "", "service delivery sign-off")
	cmd.Flags().StringVar(&resilience, "service-resilience", "", "service resilience sign-off")
	return cmd
}

func testingUATRequestCmd() *cobra.Command {
	var tester string
	cmd := &cobra.Command{
		Use:   "uat-request <id>",
		Short: "Assign a tester and request UAT",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				wp, err := e.RequestUAT(ctx, args[0], tester, actorID())
				if err != nil {
					return err
				}
				return printJSONOrTable(wp)
			})
		},
	}
	cmd.Flags().StringVar(&tester, "tester", "", "UAT tester user id")
	_ = cmd.MarkFlagRequired("tester")
	return cmd
}

// --- deployment ---

func deploymentCmd() *cobra.Command {
	c := &cobra.Command{Use: "deployment", Short: "Deployment stage"}
	c.AddCommand(deploymentSetCmd())
	c.AddCommand(actionCmd("service-accept <id>", "Record service acceptance of deployment",
		func(e engine.Engine, ctx context.Context, id string) (domain.WorkPackage, error) {
			return e.AcceptDeploymentService(ctx, id, actorID())
		}))
	c.AddCommand(actionCmd("approve <id>", "Approve deployment and complete",
		func(e engine.Engine, ctx context.Context, id string) (domain.WorkPackage, error) {
			return e.ApproveDeployment(ctx, id, actorID())
		}))
	return c
}

func deploymentSetCmd() *cobra.Command {
	var date, by, docs, rollback, resilience, operations, delivery string
	cmd := &cobra.Command{
		Use:   "set <id>",
		Short: "Update deployment fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			form := engine.DeployedForm{
				DeploymentDate:       changedString(cmd, "date", &date),
				DeployedBy:           changedString(cmd, "by", &by),
				SupportDocumentation: changedString(cmd, "support-docs", &docs),
				RollbackPlan:         changedString(cmd, "rollback", &rollback),
				ServiceResilience:    changedSignOff(cmd, "service-resilience", &resilience),
				ServiceOperations:    changedSignOff(cmd, "service-operations", &operations),
				ServiceDelivery:      changedSignOff(cmd, "service-delivery", &delivery),
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				rec, err := e.SaveDeployed(ctx, args[0], actorID(), form)
				if err != nil {
					return err
				}
				return printJSONOrTable(rec)
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "deployment date")
	cmd.Flags().StringVar(&by, "by", "", "deployed by")
	cmd.Flags().StringVar(&docs, "support-docs", "", "support documentation")
	cmd.Flags().StringVar(&rollback, "rollback", "", "rollback plan")
	cmd.Flags().StringVar(&resilience, "service-resilience", "", "service resilience sign-off")
	cmd.Flags().StringVar(&operations, "service-operations", "", "service operations sign-off")
	cmd.Flags().StringVar(&delivery, "service-delivery", "", "service delivery sign-off")
	return cmd
}

// --- notification rules ---

func ruleCmd() *cobra.Command {
	c := &cobra.Command{Use: "rule", Short: "Manage notification rules"}
	c.AddCommand(ruleCreateCmd())
	c.AddCommand(ruleListCmd())
	c.AddCommand(ruleDeleteCmd())
	return c
}

func ruleCreateCmd() *cobra.Command {
	var eventKey, stage string
	var roles, users []string
	var inactive bool
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create notification rule",
		RunE: func(cmd *cobra.Command, args []string) error {
			if stage != "" && !domain.ValidStatus(domain.Status(stage)) {
				return fmt.Errorf("invalid stage %q", stage)
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				rule := domain.NotificationRule{
					ID:       newID(),
					EventKey: eventKey,
					Stage:    domain.Status(stage),
					Recipients: domain.RecipientSpec{
						Roles: roles,
						Users: users,
					},
					Active:    !inactive,
					CreatedAt: time.Now().UTC().Format(time.RFC3339),
				}
				if err := e.Repo.InsertRule(ctx, rule); err != nil {
					return err
				}
				return printJSONOrTable(rule)
			})
		},
	}
	cmd.Flags().StringVar(&eventKey, "event", "", "event key (e.g. workpackage.stage_changed)")
	cmd.Flags().StringVar(&stage, "stage", "", "stage discriminator (optional)")
	cmd.Flags().StringArrayVar(&roles, "role", []string{}, "recipient role id (repeatable)")
	cmd.Flags().StringArrayVar(&users, "user", []string{}, "recipient user id (repeatable)")
	cmd.Flags().BoolVar(&inactive, "inactive", false, "create disabled")
	_ = cmd.MarkFlagRequired("event")
	return cmd
}

func ruleListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List notification rules",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				rules, err := e.Repo.ListRules(ctx)
				if err != nil {
					return err
				}
				return printJSONOrTable(rules)
			})
		},
	}
	return cmd
}

func ruleDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete notification rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.Repo.DeleteRule(ctx, args[0])
			})
		},
	}
	return cmd
}

// --- users / roles ---

func userCmd() *cobra.Command {
	c := &cobra.Command{Use: "user", Short: "Manage users"}
	var name, email string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				u := domain.User{
					ID:        newID(),
					Name:      name,
					Email:     email,
					CreatedAt: time.Now().UTC().Format(time.RFC3339),
				}
				if err := e.Repo.InsertUser(ctx, u); err != nil {
					return err
				}
				return printJSONOrTable(u)
			})
		},
	}
	create.Flags().StringVar(&name, "name", "", "display name")
	create.Flags().StringVar(&email, "email", "", "email address")
	_ = create.MarkFlagRequired("email")
	list := &cobra.Command{
		Use:   "list",
		Short: "List users",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				users, err := e.Repo.ListUsers(ctx)
				if err != nil {
					return err
				}
				return printJSONOrTable(users)
			})
		},
	}
	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.Repo.DeleteUser(ctx, args[0])
			})
		},
	}
	c.AddCommand(create, list, del)
	return c
}

func roleCmd() *cobra.Command {
	c := &cobra.Command{Use: "role", Short: "Manage roles and membership"}
	var name string
	set := &cobra.Command{
		Use:   "set <id>",
		Short: "Create or update role",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				role := domain.Role{ID: args[0], Name: name}
				if err := e.Repo.UpsertRole(ctx, role); err != nil {
					return err
				}
				return printJSONOrTable(role)
			})
		},
	}
	set.Flags().StringVar(&name, "name", "", "role name")
	list := &cobra.Command{
		Use:   "list",
		Short: "List roles",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				roles, err := e.Repo.ListRoles(ctx)
				if err != nil {
					return err
				}
				return printJSONOrTable(roles)
			})
		},
	}
	assign := &cobra.Command{
		Use:   "assign <role-id> <user-id>",
		Short: "Add user to role",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if _, err := e.Repo.GetRole(ctx, args[0]); err != nil {
					return err
				}
				if _, err := e.Repo.GetUser(ctx, args[1]); err != nil {
					return err
				}
				return e.Repo.AssignRole(ctx, args[1], args[0])
			})
		},
	}
	unassign := &cobra.Command{
		Use:   "unassign <role-id> <user-id>",
		Short: "Remove user from role",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.Repo.UnassignRole(ctx, args[1], args[0])
			})
		},
	}
	c.AddCommand(set, list, assign, unassign)
	return c
}

// --- mail ---

func mailCmd() *cobra.Command {
	c := &cobra.Command{Use: "mail", Short: "Inspect and drain the mail outbox"}
	var n int
	list := &cobra.Command{
		Use:   "list",
		Short: "List outbound mail, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				mail, err := e.Repo.ListMail(ctx, n)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(mail)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Template", "To", "Status", "Attempts", "Created"})
				for _, m := range mail {
					tw.AppendRow(table.Row{m.ID, m.TemplateID, strings.Join(m.To, ","), m.Status, m.Attempts, m.CreatedAt})
				}
				tw.Render()
				return nil
			})
		},
	}
	list.Flags().IntVar(&n, "n", 50, "max rows")
	deliver := &cobra.Command{
		Use:   "deliver",
		Short: "Run one delivery pass over queued mail",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				w := notify.NewWorker(e.Repo, nil, 0, sglog.WithComponent("mail"))
				w.DeliverPending(ctx)
				return nil
			})
		},
	}
	c.AddCommand(list, deliver)
	return c
}

// --- api keys ---

func apiKeyCmd() *cobra.Command {
	c := &cobra.Command{Use: "apikey", Short: "Manage API keys"}
	var actor, name string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create API key (plaintext shown once)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				plaintext := "sg_" + newID()
				key := domain.APIKey{
					ID:        newID(),
					ActorID:   actor,
					Name:      name,
					CreatedAt: time.Now().UTC().Format(time.RFC3339),
				}
				if err := e.Repo.InsertAPIKey(ctx, key, repo.HashAPIKey(plaintext)); err != nil {
					return err
				}
				return printJSONOrTable(map[string]any{"key": plaintext, "id": key.ID, "actor_id": key.ActorID})
			})
		},
	}
	create.Flags().StringVar(&actor, "actor", "", "actor id the key acts as")
	create.Flags().StringVar(&name, "name", "", "key label")
	_ = create.MarkFlagRequired("actor")
	list := &cobra.Command{
		Use:   "list",
		Short: "List API keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				keys, err := e.Repo.ListAPIKeys(ctx)
				if err != nil {
					return err
				}
				return printJSONOrTable(keys)
			})
		},
	}
	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.Repo.DeleteAPIKey(ctx, args[0])
			})
		},
	}
	c.AddCommand(create, list, del)
	return c
}

// --- config ---

func configCmd() *cobra.Command {
	c := &cobra.Command{Use: "config", Short: "Manage workspace config"}
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write default stagegate.yml to the workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			path := config.Path(workspace)
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault("stagegate")), 0o644); err != nil {
				return err
			}
			fmt.Println("wrote", path)
			return nil
		},
	}
	show := &cobra.Command{
		Use:   "show",
		Short: "Show effective config",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return printJSONOrTable(e.Config)
			})
		},
	}
	c.AddCommand(initCmd, show)
	return c
}

// --- serve ---

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server and mail worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			conn, err := db.Open(db.Config{Workspace: workspace})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.Migrate(conn); err != nil {
				return err
			}
			r := repo.Repo{DB: conn}
			cfg, err := app.ResolveConfig(cmd.Context(), workspace, r)
			if err != nil {
				return err
			}
			e := engine.New(conn, cfg)
			dispatcher := notify.NewDispatcher(r, cfg, sglog.WithComponent("notify"))
			e.Publish = dispatcher.HandleEvent

			secret := os.Getenv("STAGEGATE_JWT_SECRET")
			if secret == "" {
				secret = cfg.Server.JWTSecret
			}
			if secret == "" {
				return fmt.Errorf("STAGEGATE_JWT_SECRET is required for bearer auth")
			}
			handler, err := server.New(server.Config{
				Engine:   e,
				BasePath: basePath,
				Auth:     server.AuthConfig{JWTSecret: secret, Logger: sglog.WithComponent("auth")},
			})
			if err != nil {
				return err
			}

			var interval time.Duration
			if cfg.Mail.PollInterval != "" {
				interval, err = time.ParseDuration(cfg.Mail.PollInterval)
				if err != nil {
					return fmt.Errorf("mail.poll_interval %q: %w", cfg.Mail.PollInterval, err)
				}
			}
			worker := notify.NewWorker(r, nil, interval, sglog.WithComponent("mail"))
			workerCtx, stopWorker := context.WithCancel(cmd.Context())
			defer stopWorker()
			go worker.Run(workerCtx)

			if addr == "" {
				addr = cfg.Server.Addr
			}
			srv := &http.Server{Addr: addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			fmt.Printf("Serving Stagegate API on http://%s%s (OpenAPI at /openapi.json)\n", addr, basePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	cmd.Flags().StringVar(&basePath, "base-path", "/v1", "API base path")
	return cmd
}

// --- helpers ---

type wpAction func(e engine.Engine, ctx context.Context, id string) (domain.WorkPackage, error)

func actionCmd(use, short string, action wpAction) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				wp, err := action(e, ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(wp)
			})
		},
	}
}

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	r := repo.Repo{DB: conn}
	cfg, err := app.ResolveConfig(ctx, workspace, r)
	if err != nil {
		return err
	}
	e := engine.New(conn, cfg)
	dispatcher := notify.NewDispatcher(r, cfg, sglog.WithComponent("notify"))
	e.Publish = dispatcher.HandleEvent
	return fn(ctx, e)
}

func newID() string {
	return uuid.NewString()
}

func actorID() *string {
	id := viper.GetString("actor-id")
	if id == "" {
		return nil
	}
	return &id
}

func changedString(cmd *cobra.Command, flag string, v *string) *string {
	if cmd.Flags().Changed(flag) {
		return v
	}
	return nil
}

func changedSignOff(cmd *cobra.Command, flag string, v *string) *domain.SignOff {
	if cmd.Flags().Changed(flag) {
		so := domain.SignOff(*v)
		return &so
	}
	return nil
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
