package domain

type Route string

const (
	RouteNone                 Route = ""
	RouteSignIn               Route = "sign_in"
	RoutePaymentSetupStart    Route = "payment_setup_start"
	RoutePaymentSetupContinue Route = "payment_setup_continue"
	RouteMainApp              Route = "main_app"
)

func (r Route) Path() string {
	switch r {
	case RouteSignIn:
		return "/(onboarding)/welcome"
	case RoutePaymentSetupStart:
		return "/onboarding/start"
	case RoutePaymentSetupContinue:
		return "/onboarding/continue"
	case RouteMainApp:
		return "/(tabs)/home"
	default:
		return ""
	}
}

func (r Route) Label() string {
	switch r {
	case RouteSignIn:
		return "Sign in"
	case RoutePaymentSetupStart:
		return "Set up payments"
	case RoutePaymentSetupContinue:
		return "Complete payment setup"
	case RouteMainApp:
		return "Home"
	default:
		return "pending"
	}
}

// RouteForStatus maps a resolved onboarding status to the screen stack the
// user lands on. Loading withholds navigation.
func RouteForStatus(status OnboardingStatus) Route {
	switch status {
	case OnboardingNeedsAccount:
		return RoutePaymentSetupStart
	case OnboardingNeedsCompletion:
		return RoutePaymentSetupContinue
	case OnboardingReady:
		return RouteMainApp
	case OnboardingNotApplicable:
		return RouteSignIn
	default:
		return RouteNone
	}
}
