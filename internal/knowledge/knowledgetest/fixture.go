// Package knowledgetest provides a small hospital knowledge document for tests.
package knowledgetest

import (
	"encoding/json"

	"github.com/wolfman30/hospital-voicebot/internal/knowledge"
)

// Document returns a fresh copy of the fixture document.
func Document() knowledge.Document {
	return knowledge.Document{
		Hospital: knowledge.Hospital{
			Name:       "Even Hospital",
			Location:   "Bangalore, India",
			Philosophy: "Preventive, people-first healthcare.",
		},
		DocumentInfo: &knowledge.DocumentInfo{TotalDoctors: 5, TotalSpecialties: 3},
		Doctors: []knowledge.Doctor{
			{
				DoctorID:        "D001",
				Name:            "Harish Puranik",
				Specialty:       "Orthopedics",
				ExperienceYears: 17,
				ConsultationFee: "₹800",
				Credentials:     []string{"MBBS", "MS Ortho"},
				Languages:       []string{"English", "Hindi", "Kannada"},
				KeyExpertise:    []string{"Joint replacement", "Sports injuries", "Arthroscopy", "Trauma"},
				WhyRecommend:    "Extensive experience with knee and hip replacements.",
			},
			{
				DoctorID:        "D002",
				Name:            "Meera Rao",
				Specialty:       "Gastroenterology",
				ExperienceYears: 12,
				ConsultationFee: "₹900",
				Credentials:     []string{"MBBS", "DM Gastro"},
				Languages:       []string{"English", "Kannada"},
				KeyExpertise:    []string{"Endoscopy", "Liver disease"},
				WhyRecommend:    "Known for careful digestive health workups.",
			},
			{
				DoctorID:        "D003",
				Name:            "Anjali Desai",
				Specialty:       "Obstetrics and Gynecology",
				ExperienceYears: 15,
				ConsultationFee: "₹1000",
				Languages:       []string{"English", "Hindi"},
				KeyExpertise:    []string{"High-risk pregnancy", "Prenatal care"},
				WhyRecommend:    "Compassionate care through every trimester.",
			},
			{
				DoctorID:        "D004",
				Name:            "Rajesh Kumar",
				Specialty:       "Orthopedics",
				ExperienceYears: 9,
				ConsultationFee: "₹700",
				Languages:       []string{"English", "Tamil"},
				KeyExpertise:    []string{"Spine surgery", "Fracture care"},
				WhyRecommend:    "Focused on fast recovery after injuries.",
			},
			{
				DoctorID:        "D005",
				Name:            "Sunil Menon",
				Specialty:       "Cardiology",
				ExperienceYears: 20,
				ConsultationFee: "₹1200",
				Languages:       []string{"English", "Malayalam"},
				KeyExpertise:    []string{"Interventional cardiology", "Echocardiography"},
				WhyRecommend:    "Senior cardiologist trusted for complex cases.",
			},
		},
		Specialties: []knowledge.Specialty{
			{
				Name:               "Orthopedics",
				Description:        "Bones, joints and muscles.",
				DoctorsInSpecialty: 2,
				Conditions: []knowledge.Condition{
					{
						Name:               "Knee pain",
						PatientPhrases:     []string{"my knee hurts", "knee pain when walking", "swollen knee"},
						RecommendedDoctors: []string{"Harish Puranik", "Rajesh Kumar"},
						QAPairs: []knowledge.QAPair{
							{Question: "Do I need surgery for knee pain?", Answer: "Most knee pain improves with physiotherapy and medication."},
						},
					},
				},
			},
			{
				Name:               "Gastroenterology",
				Description:        "Digestive system disorders.",
				DoctorsInSpecialty: 1,
				Conditions: []knowledge.Condition{
					{
						Name:               "Stomach pain",
						PatientPhrases:     []string{"severe stomach pain", "my stomach hurts after eating"},
						RecommendedDoctors: []string{"Meera Rao"},
						QAPairs: []knowledge.QAPair{
							{Question: "When should stomach pain be checked?", Answer: "See a doctor if stomach pain is severe or lasts more than two days."},
						},
					},
				},
			},
			{
				Name:               "Obstetrics and Gynecology",
				Description:        "Pregnancy and women's health.",
				DoctorsInSpecialty: 1,
				Conditions: []knowledge.Condition{
					{
						Name:               "Pregnancy care",
						PatientPhrases:     []string{"i am pregnant", "need prenatal care"},
						RecommendedDoctors: []string{"Anjali Desai"},
					},
				},
			},
		},
	}
}

// Base returns the fixture document indexed as a knowledge base.
func Base() *knowledge.Base {
	b, err := knowledge.New(Document())
	if err != nil {
		panic(err)
	}
	return b
}

// JSON returns the fixture document encoded the way it is stored on disk.
func JSON() []byte {
	data, err := json.Marshal(Document())
	if err != nil {
		panic(err)
	}
	return data
}
