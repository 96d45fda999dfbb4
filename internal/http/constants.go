package httpx

// Layouts a page can be wrapped in.
const (
	LayoutMain  = "layout"
	LayoutAdmin = "admin-layout"
)

// Page identifiers used in templates and navigation.
const (
	PageHome           = "home"
	PageGallery        = "gallery"
	PageAbout          = "about"
	PageLogin          = "login"
	PageRegister       = "register"
	PageForgotPassword = "forgot-password"

	PageAlumniDashboard     = "alumni-dashboard"
	PageAlumniJobs          = "alumni-jobs"
	PageAlumniForums        = "alumni-forums"
	PageAlumniForumCategory = "alumni-forum-category"
	PageAlumniForumTopic    = "alumni-forum-topic"
	PageAlumniProfile       = "alumni-profile"

	PageAdminHome                = "admin-home"
	PageAdminGallery             = "admin-gallery"
	PageAdminCourses             = "admin-courses"
	PageAdminAlumni              = "admin-alumni"
	PageAdminJobs                = "admin-jobs"
	PageAdminStatistics          = "admin-statistics"
	PageAdminStatGender          = "admin-stat-gender"
	PageAdminStatJobAlignment    = "admin-stat-job-alignment"
	PageAdminStatDemographics    = "admin-stat-demographics"
	PageAdminStatOutcomes        = "admin-stat-outcomes"
	PageAdminStatModelComparison = "admin-stat-model-comparison"
	PageAdminProgressReports     = "admin-progress-reports"
	PageAdminForums              = "admin-forums"
	PageAdminUsers               = "admin-users"
	PageAdminSettings            = "admin-settings"

	PageLoading  = "loading"
	PageNotFound = "not-found"
)

// Callback endpoints.
const (
	PathAuthSession     = "/auth/session"
	PathAuthLogout      = "/auth/logout"
	PathAuthStatus      = "/auth/status"
	PathProfileComplete = "/alumni/profile/complete"
	PathHealth          = "/healthz"
)

// Template paths used for loading templates in tests and development.
const (
	TemplatePathFromRoot = "frontend/templates"
	TemplatePathFromTest = "../../frontend/templates"
	StaticPathFromRoot   = "frontend/static"
)

// pageDef describes how a page renders.
type pageDef struct {
	Title   string
	Content string
	Layout  string
	// Path is the page's canonical location, used for navigation links.
	Path string
}

//nolint:gochecknoglobals // static read-only lookup for templates
var pages = map[string]pageDef{
	PageHome:           {Title: "Home", Content: "home-content", Layout: LayoutMain, Path: "/"},
	PageGallery:        {Title: "Gallery", Content: "page-content", Layout: LayoutMain, Path: "/gallery"},
	PageAbout:          {Title: "About", Content: "page-content", Layout: LayoutMain, Path: "/about"},
	PageLogin:          {Title: "Sign in", Content: "login-content", Layout: LayoutMain, Path: "/login"},
	PageRegister:       {Title: "Register", Content: "page-content", Layout: LayoutMain, Path: "/register"},
	PageForgotPassword: {Title: "Forgot password", Content: "page-content", Layout: LayoutMain, Path: "/forgot-password"},

	PageAlumniDashboard:     {Title: "Alumni Dashboard", Content: "page-content", Layout: LayoutMain, Path: "/alumni/dashboard"},
	PageAlumniJobs:          {Title: "Job Board", Content: "page-content", Layout: LayoutMain, Path: "/alumni/jobs"},
	PageAlumniForums:        {Title: "Forums", Content: "page-content", Layout: LayoutMain, Path: "/alumni/forums"},
	PageAlumniForumCategory: {Title: "Forum Category", Content: "forum-category-content", Layout: LayoutMain},
	PageAlumniForumTopic:    {Title: "Forum Topic", Content: "forum-topic-content", Layout: LayoutMain},
	PageAlumniProfile:       {Title: "My Profile", Content: "page-content", Layout: LayoutMain, Path: "/alumni/profile"},

	PageAdminHome:                {Title: "Admin Home", Content: "page-content", Layout: LayoutAdmin, Path: "/admin/home"},
	PageAdminGallery:             {Title: "Gallery Management", Content: "page-content", Layout: LayoutAdmin, Path: "/admin/gallery"},
	PageAdminCourses:             {Title: "Courses", Content: "page-content", Layout: LayoutAdmin, Path: "/admin/courses"},
	PageAdminAlumni:              {Title: "Alumni", Content: "page-content", Layout: LayoutAdmin, Path: "/admin/alumni"},
	PageAdminJobs:                {Title: "Jobs", Content: "page-content", Layout: LayoutAdmin, Path: "/admin/jobs"},
	PageAdminStatistics:          {Title: "Statistics", Content: "admin-statistics-content", Layout: LayoutAdmin, Path: "/admin/statistics"},
	PageAdminStatGender:          {Title: "Gender Distribution", Content: "page-content", Layout: LayoutAdmin, Path: "/admin/statistics/gender"},
	PageAdminStatJobAlignment:    {Title: "Job Alignment", Content: "page-content", Layout: LayoutAdmin, Path: "/admin/statistics/job-alignment"},
	PageAdminStatDemographics:    {Title: "Demographics", Content: "page-content", Layout: LayoutAdmin, Path: "/admin/statistics/demographics"},
	PageAdminStatOutcomes:        {Title: "Outcomes", Content: "page-content", Layout: LayoutAdmin, Path: "/admin/statistics/outcomes"},
	PageAdminStatModelComparison: {Title: "Model Comparison", Content: "page-content", Layout: LayoutAdmin, Path: "/admin/statistics/model-comparison"},
	PageAdminProgressReports:     {Title: "Progress Reports", Content: "page-content", Layout: LayoutAdmin, Path: "/admin/statistics/progress-reports"},
	PageAdminForums:              {Title: "Forums Management", Content: "page-content", Layout: LayoutAdmin, Path: "/admin/forums"},
	PageAdminUsers:               {Title: "Users", Content: "page-content", Layout: LayoutAdmin, Path: "/admin/users"},
	PageAdminSettings:            {Title: "Settings", Content: "page-content", Layout: LayoutAdmin, Path: "/admin/settings"},

	PageLoading:  {Title: "Loading", Content: "loading-content", Layout: LayoutMain},
	PageNotFound: {Title: "404 - Page Not Found", Content: "not-found-content", Layout: LayoutMain},
}

// adminNav lists the admin sidebar entries in display order.
//
//nolint:gochecknoglobals // static read-only navigation
var adminNav = []string{
	PageAdminHome,
	PageAdminGallery,
	PageAdminCourses,
	PageAdminAlumni,
	PageAdminJobs,
	PageAdminStatistics,
	PageAdminForums,
	PageAdminUsers,
	PageAdminSettings,
}

// statisticsPages lists the statistics sub-pages linked from the statistics overview.
//
//nolint:gochecknoglobals // static read-only navigation
var statisticsPages = []string{
	PageAdminStatGender,
	PageAdminStatJobAlignment,
	PageAdminStatDemographics,
	PageAdminStatOutcomes,
	PageAdminStatModelComparison,
	PageAdminProgressReports,
}
