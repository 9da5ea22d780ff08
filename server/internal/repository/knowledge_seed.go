package repository

import "github.com/saivighnesh2190/KLU-RAG-AGENT/server/internal/model"

// DefaultDocuments 初始知识库文档
func DefaultDocuments() []model.KnowledgeDocument {
	return []model.KnowledgeDocument{
		{
			Name: "About KL University",
			Content: "KL University (Koneru Lakshmaiah Education Foundation) is located in Vaddeswaram, Guntur, Andhra Pradesh. " +
				"The vision of the university is to be a globally renowned university. It is accredited by NAAC with A++ grade " +
				"and recognised by the UGC as a deemed to be university.",
		},
		{
			Name: "Academic Regulations",
			Content: "Students must maintain a minimum of 85% attendance in every course to be eligible for the semester end examination. " +
				"Grading follows a 10 point scale and the CGPA is the credit weighted average of grade points across all completed semesters.",
		},
		{
			Name: "Placement Report",
			Content: "The Training and Placement cell conducts campus recruitment drives every year. Over 90 percent of eligible students " +
				"were placed in the last placement season, with recruiters including TCS, Infosys, Amazon and Microsoft.",
		},
		{
			Name: "Hostel Rules",
			Content: "Hostel residents must return to the hostel by 9:00 PM. Visitors are allowed only in the reception area between " +
				"4:00 PM and 6:00 PM. Ragging is strictly prohibited and leads to expulsion.",
		},
		{
			Name: "Library Rules",
			Content: "Students may borrow up to four books for fourteen days. A fine of Rs. 2 per day is charged for late returns. " +
				"Silence must be maintained in the reading halls and mobile phones must be kept on silent.",
		},
		{
			Name: "Code of Conduct",
			Content: "Students are expected to carry their identity card on campus at all times, follow the dress code on working days " +
				"and respect university property. Violations are reviewed by the disciplinary committee.",
		},
	}
}

// DefaultRecords 初始学校结构化数据
func DefaultRecords() []model.CampusRecord {
	return []model.CampusRecord{
		{Category: "department", Name: "Computer Science and Engineering (CSE)", Detail: "HOD: Dr. K. Srinivas. 85 faculty, 1200 students. R&D Block, 3rd Floor."},
		{Category: "department", Name: "Electronics and Communication Engineering (ECE)", Detail: "HOD: Dr. P. Venkata Rao. 65 faculty, 900 students. Main Block, 2nd Floor."},
		{Category: "department", Name: "Electrical and Electronics Engineering (EEE)", Detail: "HOD: Dr. M. Lakshmi Prasad. 45 faculty, 600 students. Main Block, 1st Floor."},
		{Category: "department", Name: "Mechanical Engineering (MECH)", Detail: "HOD: Dr. R. Venkatesh. 55 faculty, 800 students. Engineering Block, Ground Floor."},
		{Category: "department", Name: "Information Technology (IT)", Detail: "HOD: Dr. N. Suresh Kumar. 50 faculty, 700 students. R&D Block, 2nd Floor."},
		{Category: "department", Name: "Artificial Intelligence and Data Science (AIDS)", Detail: "HOD: Dr. K. Praveen Kumar. 35 faculty, 450 students. R&D Block, 4th Floor."},
		{Category: "course", Name: "CS201 Data Structures", Detail: "Computer Science and Engineering, 4 credits, semester 3. Arrays, linked lists, trees and graphs."},
		{Category: "course", Name: "CS301 Database Management Systems", Detail: "Computer Science and Engineering, 4 credits, semester 5. Relational databases, SQL and normalization."},
		{Category: "course", Name: "CS401 Machine Learning", Detail: "Computer Science and Engineering, 4 credits, semester 7. Taught by Dr. K. Srinivas."},
		{Category: "course", Name: "AI301 Deep Learning", Detail: "Artificial Intelligence and Data Science, 4 credits, semester 5. CNNs, RNNs and transformers."},
		{Category: "facility", Name: "Central Library", Detail: "Library Building, near Main Gate. Timings: 8:00 AM - 10:00 PM (Mon-Sat), 9:00 AM - 6:00 PM (Sun). Contact: ext. 1234."},
		{Category: "facility", Name: "Sports Complex", Detail: "Behind Academic Block. Timings: 6:00 AM - 9:00 PM. Contact: ext. 3001."},
		{Category: "facility", Name: "University Health Center", Detail: "Near Admin Block. Timings: 8:00 AM - 8:00 PM (OPD), 24/7 (Emergency). Contact: ext. 5001."},
		{Category: "event", Name: "TechFest", Detail: "Annual technical festival with coding competitions, hackathons and tech talks. Main Auditorium."},
		{Category: "event", Name: "Hackathon", Detail: "24-hour coding marathon organised by the Coding Club in the R&D Block Labs."},
		{Category: "admission", Name: "B.Tech Computer Science and Engineering", Detail: "300 seats. Eligibility: 10+2 with Physics, Chemistry and Mathematics."},
		{Category: "admission", Name: "MBA", Detail: "120 seats. Eligibility: bachelor's degree with 50% aggregate."},
	}
}
