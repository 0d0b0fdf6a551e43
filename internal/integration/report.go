package integration

// Report accumulates the results of every phase. Phases receive the
// report built so far and return it with their section filled in.
type Report struct {
	Tester       string             `json:"agent"`
	Timestamp    string             `json:"timestamp"`
	Mission      string             `json:"mission"`
	Root         string             `json:"project_root"`
	Structure    StructureResult    `json:"pre_test_structure_validation"`
	Commands     CommandResults     `json:"command_integration_tests"`
	Modules      ModuleResults      `json:"module_accessibility_tests"`
	QualityGates QualityGateResults `json:"quality_gates_validation"`
	Atomic       AtomicResults      `json:"atomic_commits_integration"`
	Performance  PerformanceResults `json:"performance_measurements"`
	References   ReferenceResults   `json:"reference_integrity_validation"`
	Readiness    Readiness          `json:"production_readiness_assessment"`
	Summary      Summary            `json:"integration_test_summary"`
	Metadata     Metadata           `json:"execution_metadata"`
}

// StructureResult is phase 1.
type StructureResult struct {
	DirectoryCount       int                 `json:"directory_count"`
	FileCount            int                 `json:"file_count"`
	FrameworkExists      bool                `json:"claude_structure_exists"`
	PatternConsolidation bool                `json:"pattern_consolidation_success"`
	CriticalPaths        map[string]bool     `json:"critical_paths_exist"`
	Comparison           StructureComparison `json:"structure_comparison"`
	Error                string              `json:"error,omitempty"`
}

// StructureComparison relates the directory count to the target and the
// pre-migration baseline.
type StructureComparison struct {
	TargetDirectories  int      `json:"target_directories"`
	ActualDirectories  int      `json:"actual_directories"`
	ReductionAchieved  bool     `json:"reduction_achieved"`
	ImprovementPercent *float64 `json:"improvement_percentage"`
}

// CommandStatus classifies a command file.
type CommandStatus string

const (
	CommandFullyFunctional        CommandStatus = "FULLY_FUNCTIONAL"
	CommandStructuredIncomplete   CommandStatus = "STRUCTURED_BUT_INCOMPLETE"
	CommandAccessibleUnstructured CommandStatus = "ACCESSIBLE_BUT_UNSTRUCTURED"
	CommandNonFunctional          CommandStatus = "NON_FUNCTIONAL"
	CommandFileNotFound           CommandStatus = "FILE_NOT_FOUND"
	CommandErrorReading           CommandStatus = "ERROR_READING"
)

// CommandResult is the outcome of TestCommandFile.
type CommandResult struct {
	Accessible      bool          `json:"accessible"`
	HasStructure    bool          `json:"has_structure"`
	HasInstructions bool          `json:"has_instructions"`
	HasDependencies bool          `json:"has_dependencies"`
	Status          CommandStatus `json:"status"`
	Path            string        `json:"path"`
	Issues          []string      `json:"issues"`
}

// CommandResults is phase 2.
type CommandResults struct {
	Functional    map[string]CommandResult `json:"functional_commands_tested"`
	NonFunctional map[string]CommandResult `json:"non_functional_commands_tested"`
	Summary       CommandSummary           `json:"integration_summary"`
}

type CommandSummary struct {
	FunctionalWorking     int     `json:"functional_commands_still_working"`
	TotalFunctional       int     `json:"total_functional_commands"`
	PreservationRate      float64 `json:"functional_preservation_rate"`
	NonFunctionalImproved int     `json:"non_functional_commands_improved"`
	TotalNonFunctional    int     `json:"total_non_functional_commands"`
	ImprovementRate       float64 `json:"non_functional_improvement_rate"`
}

// ModuleStatus classifies a quality or pattern module.
type ModuleStatus string

const (
	ModuleFullyFunctional      ModuleStatus = "FULLY_FUNCTIONAL"
	ModuleFunctionalLimited    ModuleStatus = "FUNCTIONAL_BUT_LIMITED"
	ModuleAccessibleIncomplete ModuleStatus = "ACCESSIBLE_BUT_INCOMPLETE"
	ModuleFileNotFound         ModuleStatus = "FILE_NOT_FOUND"
	ModuleErrorReading         ModuleStatus = "ERROR_READING"
)

// ModuleResult is the outcome of TestModuleFile.
type ModuleResult struct {
	Accessible        bool         `json:"accessible"`
	HasQualityContent bool         `json:"has_quality_content"`
	HasEnforcement    bool         `json:"has_enforcement"`
	Status            ModuleStatus `json:"status"`
	Path              string       `json:"path"`
	ModuleType        string       `json:"module_type"`
	Issues            []string     `json:"issues"`
}

// ModuleResults is phase 3.
type ModuleResults struct {
	Quality       map[string]ModuleResult `json:"quality_modules_tested"`
	Patterns      map[string]ModuleResult `json:"pattern_modules_tested"`
	Consolidation Consolidation           `json:"consolidation_verification"`
	Summary       ModuleSummary           `json:"accessibility_summary"`
}

type Consolidation struct {
	ModulesPatternsExists  bool `json:"modules_patterns_exists"`
	PromptEngPatternsEmpty bool `json:"prompt_eng_patterns_empty"`
	PatternFiles           int  `json:"pattern_files_count"`
}

type ModuleSummary struct {
	Accessible           int     `json:"quality_modules_accessible"`
	Total                int     `json:"total_quality_modules"`
	AccessibilityRate    float64 `json:"quality_accessibility_rate"`
	PatternConsolidation bool    `json:"pattern_consolidation_success"`
}

// QualityGateResults is phase 4.
type QualityGateResults struct {
	TDD         TDDResult         `json:"tdd_module_test"`
	Gates       GatesResult       `json:"universal_quality_gates_test"`
	Enforcement EnforcementResult `json:"enforcement_mechanism_test"`
	Integration GateIntegration   `json:"integration_test"`
	Summary     GateSummary       `json:"functionality_summary"`
}

type TDDResult struct {
	Accessible       bool     `json:"accessible"`
	HasCycle         bool     `json:"has_red_green_refactor"`
	HasEnforcement   bool     `json:"has_enforcement"`
	HasBlockingRules bool     `json:"has_blocking_rules"`
	Functional       bool     `json:"functional"`
	Issues           []string `json:"issues"`
}

type GatesResult struct {
	Accessible           bool     `json:"accessible"`
	HasDefinition        bool     `json:"has_gates_definition"`
	HasEnforcementRules  bool     `json:"has_enforcement_rules"`
	HasIntegrationPoints bool     `json:"has_integration_points"`
	Functional           bool     `json:"functional"`
	Issues               []string `json:"issues"`
}

type EnforcementResult struct {
	ModulesScanned int            `json:"modules_scanned"`
	Mechanisms     []string       `json:"mechanisms_found"`
	Working        int            `json:"mechanisms_working"`
	Patterns       map[string]int `json:"enforcement_patterns"`
}

type GateIntegration struct {
	CrossReferences int      `json:"cross_references_found"`
	Patterns        []string `json:"integration_patterns"`
	Working         bool     `json:"integration_working"`
}

type GateSummary struct {
	TDD         bool `json:"tdd_functional"`
	Gates       bool `json:"quality_gates_functional"`
	Enforcement bool `json:"enforcement_working"`
	Integration bool `json:"integration_working"`
	Overall     bool `json:"overall_quality_system_functional"`
}

// AtomicResults is phase 5.
type AtomicResults struct {
	Git       GitStatus         `json:"git_repository_status"`
	Evidence  CommitEvidence    `json:"atomic_commit_evidence"`
	Framework AtomicIntegration `json:"framework_integration_test"`
	Rollback  Rollback          `json:"rollback_capability_test"`
	Summary   AtomicSummary     `json:"integration_summary"`
}

type GitStatus struct {
	Working      bool   `json:"git_working"`
	IsRepository bool   `json:"is_repository"`
	HasCommits   bool   `json:"has_commits"`
	Branch       string `json:"current_branch,omitempty"`
	Status       string `json:"status"`
}

type CommitEvidence struct {
	Found         bool     `json:"migration_commits_found"`
	Messages      []string `json:"atomic_commit_messages"`
	CommitCount   int      `json:"commit_count"`
	RealMigration bool     `json:"real_migration_evidence"`
	Error         string   `json:"error,omitempty"`
}

type AtomicIntegration struct {
	Found    bool     `json:"integration_found"`
	Commands []string `json:"command_integration"`
	Modules  []string `json:"module_integration"`
	Points   int      `json:"integration_points"`
}

type Rollback struct {
	Available     bool   `json:"rollback_available"`
	LogAccessible bool   `json:"git_log_accessible"`
	BranchListing bool   `json:"branch_switching_possible"`
	BackupCommits bool   `json:"backup_commits_found"`
	Error         string `json:"error,omitempty"`
}

type AtomicSummary struct {
	GitWorking          bool `json:"git_working"`
	EvidenceFound       bool `json:"atomic_evidence_found"`
	FrameworkIntegrated bool `json:"framework_integrated"`
	RollbackAvailable   bool `json:"rollback_available"`
	Overall             bool `json:"overall_atomic_integration"`
}

// PerformanceResults is phase 6.
type PerformanceResults struct {
	Directories DirectoryReduction `json:"directory_complexity_reduction"`
	FileAccess  FileAccess         `json:"file_access_optimization"`
	Resolution  Resolution         `json:"reference_resolution_improvement"`
	LoadTime    LoadTime           `json:"load_time_estimation"`
	Summary     PerformanceSummary `json:"performance_summary"`
}

type DirectoryReduction struct {
	Current          int     `json:"current_directory_count"`
	Original         int     `json:"original_directory_count"`
	Target           int     `json:"target_directory_count"`
	Reduction        int     `json:"reduction_achieved"`
	ReductionPercent float64 `json:"reduction_percentage"`
	TargetMet        bool    `json:"target_met"`
}

type FileAccess struct {
	ConsolidatedPatterns bool `json:"consolidated_patterns"`
	CentralizedQuality   bool `json:"centralized_quality"`
	UnifiedModules       bool `json:"unified_modules"`
	Improvement          bool `json:"improvement_estimated"`
	Score                int  `json:"total_optimization_score"`
}

type Resolution struct {
	Scanned          int     `json:"total_references_scanned"`
	Broken           int     `json:"broken_references_found"`
	IntegrityPercent float64 `json:"reference_integrity_percentage"`
	Improvement      bool    `json:"improvement_estimated"`
	BaselineBroken   float64 `json:"baseline_broken_percentage"`
	CurrentBroken    float64 `json:"current_broken_percentage"`
}

type LoadTime struct {
	TraversalImprovement  float64  `json:"directory_traversal_improvement"`
	PatternFilesBefore    int      `json:"pattern_files_before"`
	PatternFilesAfter     int      `json:"pattern_files_after"`
	DuplicationEliminated bool     `json:"duplication_eliminated"`
	EstimatedImprovement  int      `json:"estimated_load_time_improvement"`
	Factors               []string `json:"improvement_factors"`
}

type PerformanceSummary struct {
	DirectoryReduction float64 `json:"directory_reduction_achieved"`
	AccessOptimized    bool    `json:"access_optimization_achieved"`
	ResolutionImproved bool    `json:"resolution_improvement_achieved"`
	Overall            bool    `json:"overall_performance_improved"`
}

// ReferenceResults is phase 7.
type ReferenceResults struct {
	Scan    ReferenceScan    `json:"reference_scan_results"`
	Links   LinkScan         `json:"markdown_link_results"`
	Broken  BrokenAnalysis   `json:"broken_reference_analysis"`
	Fixes   FixRequirements  `json:"fix_requirements"`
	Summary IntegritySummary `json:"integrity_summary"`
}

// Reference is one path mention found in a framework file.
type Reference struct {
	Source string `json:"source_file"`
	Ref    string `json:"reference"`
	Target string `json:"target_path"`
	Exists bool   `json:"exists"`
}

type ReferenceScan struct {
	FilesScanned     int         `json:"files_scanned"`
	Total            int         `json:"total_references"`
	Broken           int         `json:"broken_references"`
	Working          int         `json:"working_references"`
	IntegrityPercent float64     `json:"integrity_percentage"`
	Details          []Reference `json:"reference_details"`
}

// LinkScan covers relative markdown links found through the document
// outline.
type LinkScan struct {
	Total  int      `json:"total_links"`
	Broken []string `json:"broken_links"`
}

type BrokenAnalysis struct {
	ByDirectory map[string]int `json:"broken_by_directory"`
	MostCommon  []string       `json:"most_common_breaks"`
}

type FixRequirements struct {
	Automated       int               `json:"automated_fixes_possible"`
	Manual          int               `json:"manual_fixes_required"`
	Suggestions     map[string]string `json:"suggested_targets"`
	EstimatedEffort string            `json:"estimated_effort"`
	Recommendations []string          `json:"fix_recommendations"`
}

type IntegritySummary struct {
	Total             int     `json:"total_references"`
	Broken            int     `json:"broken_references"`
	IntegrityPercent  float64 `json:"integrity_percentage"`
	Acceptable        bool    `json:"integrity_acceptable"`
	ImprovementNeeded bool    `json:"improvement_needed"`
}

// Readiness is phase 8.
type Readiness struct {
	Structural  StructuralReadiness  `json:"structural_readiness"`
	Functional  FunctionalReadiness  `json:"functional_readiness"`
	Quality     QualityReadiness     `json:"quality_readiness"`
	Integration IntegrationReadiness `json:"integration_readiness"`
	Overall     OverallAssessment    `json:"overall_assessment"`
}

type StructuralReadiness struct {
	ConsolidationComplete bool `json:"directory_consolidation_complete"`
	TargetMet             bool `json:"target_directory_count_met"`
	DuplicationEliminated bool `json:"pattern_duplication_eliminated"`
	Score                 int  `json:"structural_score"`
}

type FunctionalReadiness struct {
	CommandsPreserved    bool    `json:"functional_commands_preserved"`
	CommandAccessibility float64 `json:"command_accessibility"`
	ModuleAccessibility  bool    `json:"module_accessibility"`
	Score                int     `json:"functional_score"`
}

type QualityReadiness struct {
	GatesFunctional bool `json:"quality_gates_functional"`
	TDDWorking      bool `json:"tdd_enforcement_working"`
	Enforcement     bool `json:"enforcement_mechanisms_active"`
	Score           int  `json:"quality_score"`
}

type IntegrationReadiness struct {
	AtomicCommits bool `json:"atomic_commits_working"`
	Git           bool `json:"git_integration_functional"`
	Rollback      bool `json:"rollback_capability_available"`
	Score         int  `json:"integration_score"`
}

type OverallAssessment struct {
	Total          int      `json:"total_score"`
	Max            int      `json:"max_score"`
	Percent        float64  `json:"readiness_percentage"`
	Ready          bool     `json:"production_ready"`
	Level          string   `json:"readiness_level"`
	Blockers       []string `json:"remaining_blockers"`
	Recommendation string   `json:"recommendation"`
}

// Summary condenses the phases into findings and recommendations.
type Summary struct {
	Execution       ExecutionSummary    `json:"test_execution_summary"`
	KeyFindings     KeyFindings         `json:"key_findings"`
	Migration       MigrationValidation `json:"migration_validation"`
	Impact          PerformanceImpact   `json:"performance_impact"`
	Recommendations []string            `json:"recommendations"`
	NextSteps       []string            `json:"next_steps"`
}

type ExecutionSummary struct {
	Phases            int     `json:"total_phases_completed"`
	CommandsTested    int     `json:"commands_tested"`
	ModulesTested     int     `json:"modules_tested"`
	IntegrationPoints int     `json:"integration_points_verified"`
	Measurements      int     `json:"performance_measurements_taken"`
	DurationMinutes   float64 `json:"test_duration_minutes"`
}

type KeyFindings struct {
	StructuralConsolidation bool    `json:"structural_consolidation_success"`
	DirectoryReduction      float64 `json:"directory_reduction_achieved"`
	PreservationRate        float64 `json:"functional_preservation_rate"`
	QualityAccessibility    float64 `json:"quality_module_accessibility"`
	QualitySystemFunctional bool    `json:"quality_system_functional"`
	AtomicIntegrated        bool    `json:"atomic_commits_integrated"`
	PerformanceImproved     bool    `json:"performance_improvement_estimated"`
}

type MigrationValidation struct {
	DuplicationEliminated  bool `json:"pattern_duplication_eliminated"`
	DirectoryChaosResolved bool `json:"directory_chaos_resolved"`
	FunctionalityPreserved bool `json:"functionality_preserved"`
	QualityIntact          bool `json:"quality_infrastructure_intact"`
	ObjectivesMet          bool `json:"migration_objectives_met"`
}

type PerformanceImpact struct {
	ComplexityReduced  float64 `json:"directory_complexity_reduced"`
	AccessOptimized    bool    `json:"file_access_optimized"`
	ResolutionImproved bool    `json:"reference_resolution_improved"`
	LoadTimeEstimate   int     `json:"load_time_improvement_estimated"`
	Overall            bool    `json:"overall_performance_gain"`
}

// Metadata records when the run happened.
type Metadata struct {
	Start           string  `json:"start_time"`
	End             string  `json:"end_time"`
	DurationMinutes float64 `json:"duration_minutes"`
	PhasesExecuted  int     `json:"total_phases_executed"`
	Complete        bool    `json:"comprehensive_validation_complete"`
}
